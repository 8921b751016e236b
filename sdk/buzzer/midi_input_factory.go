package buzzer

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/leandrodaf/buzzer/internal/logger"
	"github.com/leandrodaf/buzzer/internal/midi/mididarwin"
	"github.com/leandrodaf/buzzer/internal/midi/midiwindows"
	"github.com/leandrodaf/buzzer/sdk/contracts"
)

// ErrUnsupportedOS is returned when the operating system has no MIDI input implementation.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// DefaultMIDIClientName is the CoreMIDI client name used when none is given.
const DefaultMIDIClientName = "Buzzer MIDI Input"

// inputInitializers maps OS names to corresponding MIDI input initializers.
var inputInitializers = map[string]func(string, contracts.Logger) (contracts.MIDIInput, error){
	"darwin":  mididarwin.NewMIDIInput,  // macOS (Darwin) CoreMIDI input.
	"windows": midiwindows.NewMIDIInput, // Windows winmm input.
}

// NewMIDIInput creates a MIDI pad input for the current operating system.
// Its keys can then be bound as contracts.MIDINote sources with
// contracts.WithInputNotifier.
func NewMIDIInput(clientName string, log contracts.Logger) (contracts.MIDIInput, error) {
	if clientName == "" {
		clientName = DefaultMIDIClientName
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return newMIDIInput(runtime.GOOS, clientName, log)
}

func newMIDIInput(goos, clientName string, log contracts.Logger) (contracts.MIDIInput, error) {
	if initializer, exists := inputInitializers[goos]; exists {
		return initializer(clientName, log)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, goos)
}
