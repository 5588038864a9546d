package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RecordingStore keeps every finished recording on disk.
type RecordingStore struct {
	dir string
	now func() time.Time
}

func NewRecordingStore(dir string) *RecordingStore {
	return &RecordingStore{dir: dir, now: time.Now}
}

func (s *RecordingStore) Dir() string {
	return s.dir
}

// Save writes data as recording_YYYYMMDD_HHMMSS.wav, adding a counter when the
// second is already taken.
func (s *RecordingStore) Save(data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create recordings dir: %w", err)
	}

	stamp := s.now().Format("20060102_150405")
	for attempt := 0; attempt < 100; attempt++ {
		name := "recording_" + stamp + ".wav"
		if attempt > 0 {
			name = fmt.Sprintf("recording_%s_%d.wav", stamp, attempt)
		}
		path := filepath.Join(s.dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create recording: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("write recording: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close recording: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free recording name for %s", stamp)
}
