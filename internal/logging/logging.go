package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/DeRuina/timberjack"
	"github.com/sirupsen/logrus"
)

// Settings selects level and optional rotating file output.
type Settings struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// sourceFormatter adds the caller's file:line as x_file_source.
type sourceFormatter struct {
	underlying logrus.Formatter
}

func (f *sourceFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if entry.HasCaller() {
		entry.Data["x_file_source"] = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	return f.underlying.Format(entry)
}

// New builds the process logger. Output always goes to stdout and, when
// Settings.File is set, to a size-rotated file as well.
func New(cfg Settings) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()

	level := logrus.InfoLevel
	if cfg.Level != "" {
		if parsed, err := logrus.ParseLevel(strings.ToLower(cfg.Level)); err == nil {
			level = parsed
		}
	}
	logger.SetLevel(level)

	var (
		output io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		file := &timberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 10),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 14),
		}
		output = io.MultiWriter(os.Stdout, file)
		closer = file
	}
	logger.SetOutput(output)

	logger.SetFormatter(&sourceFormatter{underlying: &logrus.TextFormatter{
		FullTimestamp: true,
		CallerPrettyfier: func(*runtime.Frame) (string, string) {
			return "", ""
		},
	}})
	logger.SetReportCaller(true)

	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func orDefault(v int, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
