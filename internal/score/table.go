// Package score holds note frequencies and validated melodies.
package score

import (
	"errors"
	"fmt"

	"github.com/leandrodaf/buzzer/sdk/contracts"
)

var (
	ErrEmptyMelody     = errors.New("melody has no steps")
	ErrInvalidBeats    = errors.New("beat count must be positive")
	ErrDuplicateMelody = errors.New("melody already defined")
	ErrMissingID       = errors.New("melody id is empty")
)

// Table maps note names to frequencies and holds melodies that passed validation.
// A Table is not safe for concurrent mutation; build it first, then share it read-only.
type Table struct {
	freqs    map[contracts.Note]uint16
	melodies map[string]contracts.Melody
	order    []string
}

// NewTable creates a table with a copy of freqs. REST is always defined as 0 Hz.
func NewTable(freqs map[contracts.Note]uint16) *Table {
	t := &Table{
		freqs:    make(map[contracts.Note]uint16, len(freqs)+1),
		melodies: make(map[string]contracts.Melody),
	}
	for n, hz := range freqs {
		t.freqs[n] = hz
	}
	t.freqs[contracts.Rest] = 0
	return t
}

// Frequency resolves a note name.
func (t *Table) Frequency(note contracts.Note) (uint16, error) {
	hz, ok := t.freqs[note]
	if !ok {
		return 0, &contracts.UnknownNoteError{Note: note, Index: -1}
	}
	return hz, nil
}

// SetFrequency defines or overrides a note. Melodies already added are not re-validated,
// so notes should be set before melodies are added.
func (t *Table) SetFrequency(note contracts.Note, hz uint16) {
	t.freqs[note] = hz
}

// Validate checks that m can be played with this table.
func (t *Table) Validate(m contracts.Melody) error {
	if len(m.Steps) == 0 {
		return fmt.Errorf("melody %q: %w", m.ID, ErrEmptyMelody)
	}
	for i, s := range m.Steps {
		if _, ok := t.freqs[s.Note]; !ok {
			return &contracts.UnknownNoteError{Melody: m.ID, Note: s.Note, Index: i}
		}
		if s.Beats <= 0 {
			return fmt.Errorf("melody %q step %d: %w", m.ID, i, ErrInvalidBeats)
		}
	}
	return nil
}

// Add validates m and stores a private copy of it.
func (t *Table) Add(m contracts.Melody) error {
	if m.ID == "" {
		return ErrMissingID
	}
	if _, ok := t.melodies[m.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMelody, m.ID)
	}
	if err := t.Validate(m); err != nil {
		return err
	}
	m.Steps = append([]contracts.Step(nil), m.Steps...)
	t.melodies[m.ID] = m
	t.order = append(t.order, m.ID)
	return nil
}

// Melody returns the melody registered under id.
func (t *Table) Melody(id string) (contracts.Melody, bool) {
	m, ok := t.melodies[id]
	if !ok {
		return contracts.Melody{}, false
	}
	m.Steps = append([]contracts.Step(nil), m.Steps...)
	return m, true
}

// IDs returns melody ids in the order they were added.
func (t *Table) IDs() []string {
	return append([]string(nil), t.order...)
}
