package audio

import (
	"fmt"
	"strconv"

	"github.com/gordonklaus/portaudio"
	"github.com/samber/lo"

	"whispertyper/internal/domain"
	"whispertyper/internal/ports"
)

const framesPerBuffer = 1024

// PortAudioBackend captures through the host's default audio API.
type PortAudioBackend struct{}

// NewPortAudioBackend initializes PortAudio. Close must be called once on shutdown.
func NewPortAudioBackend() (*PortAudioBackend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: portaudio: %v", domain.ErrNoAudioBackend, err)
	}
	return &PortAudioBackend{}, nil
}

func (b *PortAudioBackend) Name() string { return "portaudio" }

func (b *PortAudioBackend) Devices() ([]domain.Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list portaudio devices: %w", err)
	}
	defaultName := ""
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultName = def.Name
	}

	inputs := lo.Filter(infos, func(info *portaudio.DeviceInfo, _ int) bool {
		return info != nil && info.MaxInputChannels > 0
	})
	return lo.Map(inputs, func(info *portaudio.DeviceInfo, _ int) domain.Device {
		return domain.Device{
			ID:               strconv.Itoa(info.Index),
			Name:             info.Name,
			MaxInputChannels: info.MaxInputChannels,
			Default:          info.Name == defaultName,
		}
	}), nil
}

func (b *PortAudioBackend) DefaultDevice() (domain.Device, error) {
	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		return domain.Device{}, fmt.Errorf("%w: %v", domain.ErrDeviceOpenFailed, err)
	}
	return domain.Device{
		ID:               strconv.Itoa(info.Index),
		Name:             info.Name,
		MaxInputChannels: info.MaxInputChannels,
		Default:          true,
	}, nil
}

func (b *PortAudioBackend) Open(deviceID string, format ports.AudioFormat, sink func(ports.Frame)) (ports.AudioStream, error) {
	info, err := b.lookup(deviceID)
	if err != nil {
		return nil, err
	}
	if info.MaxInputChannels < format.Channels {
		return nil, fmt.Errorf("device %q has %d input channels, need %d", info.Name, info.MaxInputChannels, format.Channels)
	}

	params := portaudio.LowLatencyParameters(info, nil)
	params.Input.Channels = format.Channels
	params.SampleRate = float64(format.SampleRate)
	params.FramesPerBuffer = framesPerBuffer

	channels := format.Channels
	stream, err := portaudio.OpenStream(params, func(in []int16) {
		sink(ports.Frame{Samples: in, Channels: channels})
	})
	if err != nil {
		return nil, fmt.Errorf("open portaudio stream on %q: %w", info.Name, err)
	}
	return stream, nil
}

func (b *PortAudioBackend) Close() error {
	return portaudio.Terminate()
}

func (b *PortAudioBackend) lookup(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		return portaudio.DefaultInputDevice()
	}
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if strconv.Itoa(info.Index) == deviceID || info.Name == deviceID {
			return info, nil
		}
	}
	return nil, fmt.Errorf("input device %q not found", deviceID)
}
