package contracts

import "time"

// TriggerMode selects how a raw input value is read as "pressed".
type TriggerMode int

const (
	// ActiveLow reads a value below 0.5 as pressed (pull-up wiring).
	ActiveLow TriggerMode = iota
	// ActiveHigh reads a value of 0.5 or more as pressed.
	ActiveHigh
	// Threshold reads a value strictly above Trigger.Threshold as pressed.
	Threshold
)

// DefaultThreshold is the analog threshold used when Trigger.Threshold is zero.
const DefaultThreshold = 0.5

// NoteStartThreshold sits between a released MIDI key (0) and the softest
// note start (velocity 1, raw 1/127). A Threshold trigger using it fires on
// every key press regardless of velocity.
const NoteStartThreshold = 0.5 / 127

// Trigger describes one input source and its press detection.
type Trigger struct {
	Source    Source
	Mode      TriggerMode
	Threshold float64 // Only used by Threshold; zero means DefaultThreshold.
}

// Binding ties a melody to a trigger (PerSource) or a cycle slot (Cyclic).
type Binding struct {
	Trigger   Trigger // Ignored for cycle entries.
	MelodyID  string
	BPM       int    // Zero means the melody's own tempo.
	Indicator *PinID // Optional LED lit while the melody plays.
}

// DispatchMode selects how accepted presses map to melodies.
type DispatchMode int

const (
	// PerSource restarts the melody bound to the pressed source.
	PerSource DispatchMode = iota
	// Cyclic advances through [Idle, Cycle...] on every press of a single source.
	Cyclic
	// Stepper plays the next note of a scale on every press of a single source.
	Stepper
)

// String returns the dispatch mode name used in configuration files.
func (d DispatchMode) String() string {
	switch d {
	case Cyclic:
		return "cyclic"
	case Stepper:
		return "stepper"
	default:
		return "per-source"
	}
}

// ControllerOptions defines the configuration of a melody controller.
type ControllerOptions struct {
	Logger       Logger              // Logger for sessions and input events.
	LogLevel     LogLevel            // Level of logging to use.
	BuzzerPin    PinID               // Pin wired to the buzzer.
	Debounce     time.Duration       // Minimum interval between accepted presses per source.
	Dispatch     DispatchMode        // How presses select melodies.
	Bindings     []Binding           // PerSource bindings.
	CycleTrigger *Trigger            // Source driving Cyclic and Stepper modes.
	Cycle        []Binding           // Melodies after the implicit Idle slot (Cyclic).
	ScaleID      string              // Melody whose notes the Stepper walks through.
	StepTone     time.Duration       // Tone length of a Stepper note.
	ExtraInputs  []InputNotifier     // Notifiers besides the board, e.g. a MIDI pad.
	Now          func() time.Time    // Clock used by the debouncer.
	OnSessionEnd func(SessionReport) // Called after a session goroutine has exited.
}

// Option is a function that modifies ControllerOptions.
type Option func(*ControllerOptions)

// WithLogger sets the logger for the controller.
func WithLogger(l Logger) Option {
	return func(opts *ControllerOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level for the controller.
func WithLogLevel(level LogLevel) Option {
	return func(opts *ControllerOptions) {
		opts.LogLevel = level
	}
}

// WithBuzzerPin sets the pin wired to the buzzer.
func WithBuzzerPin(pin PinID) Option {
	return func(opts *ControllerOptions) {
		opts.BuzzerPin = pin
	}
}

// WithDebounce sets the minimum interval between accepted presses of one source.
func WithDebounce(d time.Duration) Option {
	return func(opts *ControllerOptions) {
		opts.Debounce = d
	}
}

// WithPerSource configures one melody per source.
func WithPerSource(bindings ...Binding) Option {
	return func(opts *ControllerOptions) {
		opts.Dispatch = PerSource
		opts.Bindings = append(opts.Bindings, bindings...)
	}
}

// WithCycle configures a single source cycling through Idle and the given melodies.
func WithCycle(trigger Trigger, cycle ...Binding) Option {
	return func(opts *ControllerOptions) {
		opts.Dispatch = Cyclic
		opts.CycleTrigger = &trigger
		opts.Cycle = append(opts.Cycle, cycle...)
	}
}

// WithStepper configures a single source stepping through the notes of a scale melody.
func WithStepper(trigger Trigger, scaleID string) Option {
	return func(opts *ControllerOptions) {
		opts.Dispatch = Stepper
		opts.CycleTrigger = &trigger
		opts.ScaleID = scaleID
	}
}

// WithStepTone sets how long a Stepper note sounds.
func WithStepTone(d time.Duration) Option {
	return func(opts *ControllerOptions) {
		opts.StepTone = d
	}
}

// WithInputNotifier adds an input notifier, such as a MIDI pad, next to the board.
func WithInputNotifier(n InputNotifier) Option {
	return func(opts *ControllerOptions) {
		opts.ExtraInputs = append(opts.ExtraInputs, n)
	}
}

// WithClock overrides the clock used for debouncing.
func WithClock(now func() time.Time) Option {
	return func(opts *ControllerOptions) {
		opts.Now = now
	}
}

// WithSessionEndHook registers a callback run after each session exits. The
// callback runs on its own goroutine and may call Controller.Stop; Stop does
// not wait for callbacks that are still running.
func WithSessionEndHook(fn func(SessionReport)) Option {
	return func(opts *ControllerOptions) {
		opts.OnSessionEnd = fn
	}
}
