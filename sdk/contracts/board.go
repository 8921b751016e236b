package contracts

import "fmt"

// PinID identifies a pin on the board. Digital and analog pins are numbered
// independently, so a PinID is only meaningful together with a SourceKind.
type PinID uint8

// SourceKind tells how an input source is wired.
type SourceKind int

const (
	// Digital is a digital input pin reporting 0 or 1.
	Digital SourceKind = iota
	// Analog is an analog input pin reporting a 0.0-1.0 voltage fraction.
	Analog
	// MIDINote is a key on a MIDI controller, reporting velocity/127 on press and 0 on release.
	MIDINote
)

// String returns a short name for the source kind.
func (k SourceKind) String() string {
	switch k {
	case Digital:
		return "digital"
	case Analog:
		return "analog"
	case MIDINote:
		return "midi"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Source identifies one input that can trigger the controller.
type Source struct {
	Kind SourceKind
	Pin  PinID
}

// String renders the source as "digital:2", "analog:0" or "midi:60".
func (s Source) String() string {
	return fmt.Sprintf("%s:%d", s.Kind, s.Pin)
}

// InputHandler receives the raw value of an input every time the board reports it.
type InputHandler func(raw float64)

// Output drives the buzzer and indicator pins. Both calls are fire-and-forget:
// transport failures are handled by the implementation, never by the caller.
type Output interface {
	SendTone(pin PinID, freqHz, durationMs uint16) // Plays freqHz for durationMs; (0, 0) silences the pin.
	SetDigitalOutput(pin PinID, high bool)         // Drives a digital output pin.
}

// InputNotifier delivers input changes to registered handlers.
type InputNotifier interface {
	OnInputChange(src Source, handler InputHandler) error // Registers handler for src and enables reporting.
}

// Board is the hardware-abstraction layer the controller runs on.
type Board interface {
	Output
	InputNotifier
}

// Indicator is a visual signal bound to a playback session, typically an LED.
type Indicator interface {
	On()
	Off()
}
