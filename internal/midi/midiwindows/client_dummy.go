//go:build !windows
// +build !windows

package midiwindows

import (
	"github.com/leandrodaf/buzzer/internal/midi"
	"github.com/leandrodaf/buzzer/sdk/contracts"
)

type dummyMIDIInput struct {
	logger contracts.Logger
}

// NewMIDIInput initializes a dummy MIDI input for non-Windows systems.
func NewMIDIInput(clientName string, logger contracts.Logger) (contracts.MIDIInput, error) {
	logger.Info("Using dummy MIDI input for non-Windows system")
	return &dummyMIDIInput{
		logger: logger,
	}, nil
}

// ListDevices logs a warning and returns midi.ErrUnavailable.
func (m *dummyMIDIInput) ListDevices() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDevices called on dummy MIDI input")
	return nil, midi.ErrUnavailable
}

// SelectDevice logs a warning and returns midi.ErrUnavailable.
func (m *dummyMIDIInput) SelectDevice(deviceID int) error {
	m.logger.Warn("SelectDevice called on dummy MIDI input")
	return midi.ErrUnavailable
}

// OnInputChange logs a warning and returns midi.ErrUnavailable.
func (m *dummyMIDIInput) OnInputChange(src contracts.Source, handler contracts.InputHandler) error {
	m.logger.Warn("OnInputChange called on dummy MIDI input")
	return midi.ErrUnavailable
}

// Close does nothing on the dummy MIDI input.
func (m *dummyMIDIInput) Close() error {
	return nil
}
