package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWritesToRotatingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "whispertyper.log")
	logger, closer, err := New(Settings{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("unexpected level: %s", logger.GetLevel())
	}

	logger.WithField("component", "test").Info("hello file")
	if err := closer.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log failed: %v", err)
	}
	if !strings.Contains(string(data), "hello file") || !strings.Contains(string(data), "x_file_source=logging_test.go") {
		t.Fatalf("unexpected log contents: %s", data)
	}
}

func TestNewInvalidLevelFallsBackToInfo(t *testing.T) {
	t.Parallel()

	logger, closer, err := New(Settings{Level: "loud"})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	defer closer.Close()
	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info fallback, got %s", logger.GetLevel())
	}
}

func TestSourceFormatterWithoutCaller(t *testing.T) {
	t.Parallel()

	logger := logrus.New()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetFormatter(&sourceFormatter{underlying: &logrus.TextFormatter{DisableTimestamp: true}})
	logger.Info("plain")

	if strings.Contains(buf.String(), "x_file_source") {
		t.Fatalf("expected no source field without caller reporting: %s", buf.String())
	}
}
