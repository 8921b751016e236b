// Package fakeboard provides an in-memory contracts.Board that records every
// output call, for tests and dry runs without hardware.
package fakeboard

import (
	"sync"
	"time"

	"github.com/leandrodaf/buzzer/sdk/contracts"
)

// EventKind distinguishes recorded output calls.
type EventKind int

const (
	ToneEvent EventKind = iota
	DigitalEvent
)

// Event is one recorded output call.
type Event struct {
	Kind       EventKind
	Pin        contracts.PinID
	FreqHz     uint16
	DurationMs uint16
	High       bool
	At         time.Time
}

// Tone is a recorded SendTone call.
type Tone struct {
	Pin        contracts.PinID
	FreqHz     uint16
	DurationMs uint16
}

// Board records output and lets tests inject input.
type Board struct {
	mu       sync.Mutex
	events   []Event
	handlers map[contracts.Source][]contracts.InputHandler
	toneHook func(Tone)
}

// New creates an empty board.
func New() *Board {
	return &Board{handlers: make(map[contracts.Source][]contracts.InputHandler)}
}

// OnTone installs a hook called synchronously after each SendTone is recorded.
func (b *Board) OnTone(fn func(Tone)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toneHook = fn
}

// SendTone records a tone command.
func (b *Board) SendTone(pin contracts.PinID, freqHz, durationMs uint16) {
	b.mu.Lock()
	b.events = append(b.events, Event{Kind: ToneEvent, Pin: pin, FreqHz: freqHz, DurationMs: durationMs, At: time.Now()})
	hook := b.toneHook
	b.mu.Unlock()

	if hook != nil {
		hook(Tone{Pin: pin, FreqHz: freqHz, DurationMs: durationMs})
	}
}

// SetDigitalOutput records a digital write.
func (b *Board) SetDigitalOutput(pin contracts.PinID, high bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, Event{Kind: DigitalEvent, Pin: pin, High: high, At: time.Now()})
}

// OnInputChange registers handler for src.
func (b *Board) OnInputChange(src contracts.Source, handler contracts.InputHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[src] = append(b.handlers[src], handler)
	return nil
}

// Input delivers raw to every handler registered for src, on the caller's goroutine.
func (b *Board) Input(src contracts.Source, raw float64) {
	b.mu.Lock()
	hs := append([]contracts.InputHandler(nil), b.handlers[src]...)
	b.mu.Unlock()

	for _, h := range hs {
		h(raw)
	}
}

// Registered reports whether any handler is registered for src.
func (b *Board) Registered(src contracts.Source) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[src]) > 0
}

// Events returns a copy of all recorded events.
func (b *Board) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.events...)
}

// Tones returns the recorded tone commands in order.
func (b *Board) Tones() []Tone {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Tone
	for _, e := range b.events {
		if e.Kind == ToneEvent {
			out = append(out, Tone{Pin: e.Pin, FreqHz: e.FreqHz, DurationMs: e.DurationMs})
		}
	}
	return out
}

// PinHigh reports the last value written to pin. Unwritten pins are low.
func (b *Board) PinHigh(pin contracts.PinID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	high := false
	for _, e := range b.events {
		if e.Kind == DigitalEvent && e.Pin == pin {
			high = e.High
		}
	}
	return high
}

// Reset drops all recorded events. Handlers stay registered.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}
