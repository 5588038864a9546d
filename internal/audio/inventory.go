package audio

import (
	"fmt"
	"sync"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"whispertyper/internal/domain"
	"whispertyper/internal/ports"
)

// Inventory lists input devices and remembers the user's selection for this process.
type Inventory struct {
	backend ports.AudioBackend
	log     *logrus.Entry

	mu       sync.Mutex
	devices  []domain.Device
	selected string
}

func NewInventory(backend ports.AudioBackend, log *logrus.Entry) *Inventory {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Inventory{backend: backend, log: log.WithField("component", "devices")}
}

// Refresh re-enumerates input devices. Devices without input channels are skipped.
func (i *Inventory) Refresh() ([]domain.Device, error) {
	listed, err := i.backend.Devices()
	if err != nil {
		return nil, err
	}
	inputs := lo.Filter(listed, func(d domain.Device, _ int) bool {
		return d.MaxInputChannels > 0
	})
	for _, d := range inputs {
		i.log.WithFields(logrus.Fields{
			"id":       d.ID,
			"name":     d.Name,
			"channels": d.MaxInputChannels,
			"default":  d.Default,
		}).Debug("input device")
	}

	i.mu.Lock()
	i.devices = inputs
	i.mu.Unlock()
	return inputs, nil
}

// Devices returns the last refreshed list, refreshing once if it is empty.
func (i *Inventory) Devices() ([]domain.Device, error) {
	i.mu.Lock()
	cached := i.devices
	i.mu.Unlock()
	if len(cached) > 0 {
		return cached, nil
	}
	return i.Refresh()
}

// Select pins deviceID for the rest of the process lifetime.
func (i *Inventory) Select(deviceID string) error {
	devices, err := i.Refresh()
	if err != nil {
		return err
	}
	device, ok := lo.Find(devices, func(d domain.Device) bool {
		return d.ID == deviceID
	})
	if !ok {
		return fmt.Errorf("input device %q not found", deviceID)
	}

	i.mu.Lock()
	i.selected = device.ID
	i.mu.Unlock()
	i.log.WithFields(logrus.Fields{"id": device.ID, "name": device.Name}).Info("input device selected")
	return nil
}

// Selected returns the pinned device ID, or "" for the system default.
func (i *Inventory) Selected() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.selected
}
