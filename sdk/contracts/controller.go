package contracts

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSessionConflict is returned when a session is started while another one
// is still registered. It signals a broken join-before-start sequence.
var ErrSessionConflict = errors.New("playback session already active")

// Outcome is how a playback session ended.
type Outcome int

const (
	// Completed means every step of the melody was played.
	Completed Outcome = iota
	// Cancelled means the session was stopped before its last step.
	Cancelled
)

// String returns the outcome name.
func (o Outcome) String() string {
	if o == Completed {
		return "completed"
	}
	return "cancelled"
}

// Mode is the coarse state of the controller.
type Mode int

const (
	// Idle means no session is running.
	Idle Mode = iota
	// Playing means exactly one session owns the buzzer.
	Playing
)

// String returns the mode name.
func (m Mode) String() string {
	if m == Playing {
		return "playing"
	}
	return "idle"
}

// ModeState is a snapshot of the controller state.
type ModeState struct {
	Mode      Mode
	SessionID uuid.UUID // Zero when Idle.
	MelodyID  string    // Empty when Idle.
	Index     int       // Position in the cycle (Cyclic) or scale (Stepper).
}

// SessionReport describes a finished playback session.
type SessionReport struct {
	ID       uuid.UUID
	MelodyID string
	Outcome  Outcome
	Err      error
	Started  time.Time
	Ended    time.Time
}

// Controller turns debounced presses into playback sessions.
type Controller interface {
	Start() error     // Registers input handlers; presses are ignored before Start.
	Stop() error      // Cancels and joins any session, silences the buzzer and turns indicators off.
	State() ModeState // Returns a snapshot of the current state.
}
