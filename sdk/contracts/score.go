package contracts

import (
	"errors"
	"fmt"
)

// Note is a symbolic note name such as "C4". Rest is the silent note.
type Note string

// Rest marks a step that only waits.
const Rest Note = "REST"

// Step is one entry of a melody: a note held for a number of beats.
type Step struct {
	Note  Note
	Beats int
}

// Melody is an ordered, named sequence of steps. BPM is the tempo used when
// the caller does not supply one.
type Melody struct {
	ID    string
	Name  string
	BPM   int
	Steps []Step
}

// ErrUnknownNote is matched by every UnknownNoteError.
var ErrUnknownNote = errors.New("unknown note")

// UnknownNoteError reports a melody step whose note is missing from the frequency table.
type UnknownNoteError struct {
	Melody string // ID of the melody being validated or played.
	Note   Note   // The unresolved note name.
	Index  int    // Position of the step in the melody.
}

func (e *UnknownNoteError) Error() string {
	return fmt.Sprintf("melody %q step %d: %v %q", e.Melody, e.Index, ErrUnknownNote, e.Note)
}

// Is reports whether target is ErrUnknownNote.
func (e *UnknownNoteError) Is(target error) bool {
	return target == ErrUnknownNote
}

// ScoreLibrary resolves notes and melodies by name.
type ScoreLibrary interface {
	Frequency(note Note) (uint16, error) // Returns the frequency of note or an UnknownNoteError.
	Melody(id string) (Melody, bool)     // Returns a copy of the melody registered under id.
}
