// Package player turns a melody into timed tone commands on a buzzer pin.
package player

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/leandrodaf/buzzer/sdk/contracts"
)

var (
	ErrEmptyMelody  = errors.New("melody has no steps")
	ErrInvalidTempo = errors.New("bpm must be positive")
)

// DefaultBPM is the tempo used when neither the caller nor the melody sets one.
const DefaultBPM = 120

// MaxToneLength is the longest tone a single Firmata tone command can carry.
const MaxToneLength = 0x3FFF * time.Millisecond

// soundShare is the part of a step that sounds, in tenths; the rest is a
// silent gap separating consecutive notes.
const soundShare = 8

// Resolver resolves note names to frequencies.
type Resolver interface {
	Frequency(note contracts.Note) (uint16, error)
}

// Player plays melodies on a single buzzer pin. A Player does not serialize
// calls itself: callers must not run two Play calls at once on the same pin.
type Player struct {
	out    contracts.Output
	notes  Resolver
	pin    contracts.PinID
	logger contracts.Logger
}

// New creates a player writing to pin through out.
func New(out contracts.Output, notes Resolver, pin contracts.PinID, logger contracts.Logger) *Player {
	return &Player{out: out, notes: notes, pin: pin, logger: logger}
}

// Pin returns the buzzer pin.
func (p *Player) Pin() contracts.PinID {
	return p.pin
}

// Tempo picks the first positive tempo of override and melodyBPM, falling
// back to DefaultBPM.
func Tempo(override, melodyBPM int) int {
	switch {
	case override > 0:
		return override
	case melodyBPM > 0:
		return melodyBPM
	default:
		return DefaultBPM
	}
}

// BeatMs returns the length of one beat in milliseconds at bpm.
func BeatMs(bpm int) int {
	return 60000 / bpm
}

// Play emits the melody at bpm until it ends or ctx is done.
//
// The indicator, when given, is on for the whole call. Whatever the exit path,
// the buzzer receives exactly one (0 Hz, 0 ms) silence command before Play
// returns and the indicator is switched off.
func (p *Player) Play(ctx context.Context, m contracts.Melody, bpm int, indicator contracts.Indicator) (contracts.Outcome, error) {
	if len(m.Steps) == 0 {
		return contracts.Cancelled, fmt.Errorf("%w: %q", ErrEmptyMelody, m.ID)
	}
	if bpm <= 0 {
		return contracts.Cancelled, fmt.Errorf("%w: %d", ErrInvalidTempo, bpm)
	}

	if indicator != nil {
		indicator.On()
		defer indicator.Off()
	}
	defer p.out.SendTone(p.pin, 0, 0)

	beatMs := BeatMs(bpm)
	for i, step := range m.Steps {
		if ctx.Err() != nil {
			return contracts.Cancelled, nil
		}

		hz, err := p.notes.Frequency(step.Note)
		if err != nil {
			if errors.Is(err, contracts.ErrUnknownNote) {
				err = &contracts.UnknownNoteError{Melody: m.ID, Note: step.Note, Index: i}
			}
			p.logger.Error("Unresolvable note; aborting melody",
				p.logger.Field().String("melody", m.ID),
				p.logger.Field().Error("error", err))
			return contracts.Cancelled, err
		}

		durationMs := beatMs * step.Beats
		if hz > 0 {
			p.out.SendTone(p.pin, hz, clampMs(durationMs*soundShare/10))
		}
		p.logger.Debug("Step",
			p.logger.Field().String("melody", m.ID),
			p.logger.Field().Int("index", i),
			p.logger.Field().String("note", string(step.Note)),
			p.logger.Field().Uint16("hz", hz),
			p.logger.Field().Int("durationMs", durationMs))

		if !sleep(ctx, time.Duration(durationMs)*time.Millisecond) {
			return contracts.Cancelled, nil
		}
	}
	return contracts.Completed, nil
}

// PlayNote sounds note for length, waits for it to end and silences the
// buzzer. length is clamped to MaxToneLength. Like Play, it sends exactly one
// silence command before returning.
func (p *Player) PlayNote(ctx context.Context, melodyID string, note contracts.Note, length time.Duration) (contracts.Outcome, error) {
	if length <= 0 {
		return contracts.Cancelled, fmt.Errorf("%w: tone length %s", ErrInvalidTempo, length)
	}
	length = min(length, MaxToneLength)

	defer p.out.SendTone(p.pin, 0, 0)

	hz, err := p.notes.Frequency(note)
	if err != nil {
		if errors.Is(err, contracts.ErrUnknownNote) {
			err = &contracts.UnknownNoteError{Melody: melodyID, Note: note, Index: -1}
		}
		return contracts.Cancelled, err
	}
	if hz > 0 {
		p.out.SendTone(p.pin, hz, clampMs(int(length/time.Millisecond)))
	}
	p.logger.Debug("Note",
		p.logger.Field().String("melody", melodyID),
		p.logger.Field().String("note", string(note)),
		p.logger.Field().Uint16("hz", hz),
		p.logger.Field().Duration("length", length))

	if !sleep(ctx, length) {
		return contracts.Cancelled, nil
	}
	return contracts.Completed, nil
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func clampMs(ms int) uint16 {
	if ms < 0 {
		return 0
	}
	if ms > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(ms)
}

// PinIndicator lights a digital output pin while a melody plays.
type PinIndicator struct {
	Out contracts.Output
	Pin contracts.PinID
}

// On drives the pin high.
func (i PinIndicator) On() {
	i.Out.SetDigitalOutput(i.Pin, true)
}

// Off drives the pin low.
func (i PinIndicator) Off() {
	i.Out.SetDigitalOutput(i.Pin, false)
}
