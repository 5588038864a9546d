package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"whispertyper/internal/domain"
	"whispertyper/internal/ports"
)

const ffmpegReadChunk = 4096

// FFMPEGBackend records through an ffmpeg child process writing s16le PCM to stdout.
// It has no device enumeration; the configured input is the only device.
type FFMPEGBackend struct {
	command     string
	inputFormat string
	inputDevice string
}

func NewFFMPEGBackend(command string, inputFormat string, inputDevice string) *FFMPEGBackend {
	if command == "" {
		command = "ffmpeg"
	}
	if inputFormat == "" {
		inputFormat = "pulse"
	}
	if inputDevice == "" {
		inputDevice = "default"
	}
	return &FFMPEGBackend{command: command, inputFormat: inputFormat, inputDevice: inputDevice}
}

func (b *FFMPEGBackend) Name() string { return "ffmpeg" }

func (b *FFMPEGBackend) Devices() ([]domain.Device, error) {
	def, _ := b.DefaultDevice()
	return []domain.Device{def}, nil
}

func (b *FFMPEGBackend) DefaultDevice() (domain.Device, error) {
	return domain.Device{
		ID:               b.inputDevice,
		Name:             b.inputFormat + ":" + b.inputDevice,
		MaxInputChannels: 1,
		Default:          true,
	}, nil
}

func (b *FFMPEGBackend) Open(deviceID string, format ports.AudioFormat, sink func(ports.Frame)) (ports.AudioStream, error) {
	if deviceID == "" {
		deviceID = b.inputDevice
	}
	if format.SampleRate <= 0 {
		format.SampleRate = SampleRate
	}
	if format.Channels <= 0 {
		format.Channels = Channels
	}
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", b.inputFormat,
		"-i", deviceID,
		"-ac", strconv.Itoa(format.Channels),
		"-ar", strconv.Itoa(format.SampleRate),
		"-f", "s16le",
		"-",
	}
	return &ffmpegStream{command: b.command, args: args, channels: format.Channels, sink: sink}, nil
}

func (b *FFMPEGBackend) Close() error { return nil }

type ffmpegStream struct {
	command  string
	args     []string
	channels int
	sink     func(ports.Frame)

	stderr  bytes.Buffer
	process *os.Process
	waitErr chan error

	stopOnce sync.Once
	stopErr  error
}

// Start launches ffmpeg and fails if it exits during the first 250ms.
func (s *ffmpegStream) Start() error {
	cmd := exec.Command(s.command, s.args...)
	cmd.Stderr = &s.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	s.process = cmd.Process

	// Wait only after stdout hits EOF so no buffered PCM is lost.
	s.waitErr = make(chan error, 1)
	go func() {
		s.pump(stdout)
		s.waitErr <- cmd.Wait()
		close(s.waitErr)
	}()

	select {
	case err := <-s.waitErr:
		if err != nil {
			return fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, stringsTrimSpaceSafe(s.stderr.String()))
		}
		return errors.New("ffmpeg exited before capture started")
	case <-time.After(250 * time.Millisecond):
	}
	return nil
}

func (s *ffmpegStream) pump(stdout io.Reader) {
	buf := make([]byte, ffmpegReadChunk)
	var carry []byte
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			data := append(carry, buf[:n]...)
			whole := len(data) &^ 1
			if whole > 0 {
				s.sink(ports.Frame{Samples: decodeS16LE(data[:whole]), Channels: s.channels})
			}
			carry = append([]byte(nil), data[whole:]...)
		}
		if err != nil {
			return
		}
	}
}

func (s *ffmpegStream) Stop() error {
	s.stopOnce.Do(func() {
		if s.process == nil {
			return
		}
		_ = s.process.Signal(os.Interrupt)

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(1200 * time.Millisecond):
			_ = s.process.Kill()
			err, ok := <-s.waitErr
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		}

		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, stringsTrimSpaceSafe(s.stderr.String()))
		}
	})
	return s.stopErr
}

func (s *ffmpegStream) Close() error {
	return s.Stop()
}

func decodeS16LE(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return samples
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func stringsTrimSpaceSafe(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}
