//go:build !darwin
// +build !darwin

package mididarwin

import (
	"github.com/leandrodaf/buzzer/internal/midi"
	"github.com/leandrodaf/buzzer/sdk/contracts"
)

type DummyMIDIInput struct {
	logger contracts.Logger
}

func NewMIDIInput(clientName string, logger contracts.Logger) (contracts.MIDIInput, error) {
	logger.Info("Using dummy MIDI input for non-macOS system")
	return &DummyMIDIInput{
		logger: logger,
	}, nil
}

func (m *DummyMIDIInput) ListDevices() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDevices called on dummy MIDI input")
	return nil, midi.ErrUnavailable
}

func (m *DummyMIDIInput) SelectDevice(deviceID int) error {
	m.logger.Warn("SelectDevice called on dummy MIDI input")
	return midi.ErrUnavailable
}

func (m *DummyMIDIInput) OnInputChange(src contracts.Source, handler contracts.InputHandler) error {
	m.logger.Warn("OnInputChange called on dummy MIDI input")
	return midi.ErrUnavailable
}

func (m *DummyMIDIInput) Close() error {
	return nil
}
