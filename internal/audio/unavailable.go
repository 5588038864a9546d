package audio

import (
	"fmt"

	"whispertyper/internal/domain"
	"whispertyper/internal/ports"
)

// UnavailableBackend stands in when no capture backend could be initialized.
// Every open fails with ErrNoAudioBackend so the controller stays Idle.
type UnavailableBackend struct {
	Reason string
}

func (UnavailableBackend) Name() string { return "none" }

func (b UnavailableBackend) Devices() ([]domain.Device, error) {
	return nil, b.err()
}

func (b UnavailableBackend) DefaultDevice() (domain.Device, error) {
	return domain.Device{}, b.err()
}

func (b UnavailableBackend) Open(string, ports.AudioFormat, func(ports.Frame)) (ports.AudioStream, error) {
	return nil, b.err()
}

func (UnavailableBackend) Close() error { return nil }

func (b UnavailableBackend) err() error {
	if b.Reason == "" {
		return domain.ErrNoAudioBackend
	}
	return fmt.Errorf("%w: %s", domain.ErrNoAudioBackend, b.Reason)
}
