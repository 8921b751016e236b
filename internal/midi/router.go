// Package midi holds the platform-independent part of the MIDI pad input:
// decoding raw packets and routing note presses to trigger handlers.
package midi

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/buzzer/internal/logger"
	"github.com/leandrodaf/buzzer/sdk/contracts"
	gomidi "gitlab.com/gomidi/midi/v2"
)

var (
	ErrUnavailable       = errors.New("MIDI input is not available on this platform")
	ErrNoDevices         = errors.New("no MIDI devices found")
	ErrInvalidDevice     = errors.New("invalid MIDI device")
	ErrUnsupportedSource = errors.New("MIDI input only provides note sources")
)

// Router turns note start/end messages into raw trigger values. Handlers are
// keyed by note number and fire for notes on every channel.
type Router struct {
	logger contracts.Logger

	mu       sync.RWMutex
	handlers map[uint8][]contracts.InputHandler
}

// NewRouter creates a router. A nil logger discards output.
func NewRouter(log contracts.Logger) *Router {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Router{
		logger:   log,
		handlers: make(map[uint8][]contracts.InputHandler),
	}
}

// OnInputChange registers handler for the note in src.Pin.
func (r *Router) OnInputChange(src contracts.Source, handler contracts.InputHandler) error {
	if src.Kind != contracts.MIDINote {
		return fmt.Errorf("%w: %s", ErrUnsupportedSource, src)
	}
	if src.Pin > 127 {
		return fmt.Errorf("%w: note %d out of range", ErrUnsupportedSource, src.Pin)
	}

	r.mu.Lock()
	r.handlers[uint8(src.Pin)] = append(r.handlers[uint8(src.Pin)], handler)
	r.mu.Unlock()
	return nil
}

// Dispatch decodes a raw packet, which may hold several channel messages, and
// calls the handlers of every note started or ended in it.
func (r *Router) Dispatch(data []byte) {
	for _, msg := range Split(data) {
		var ch, key, vel uint8
		var raw float64

		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			raw = float64(vel) / 127
		case msg.GetNoteEnd(&ch, &key):
			raw = 0
		default:
			continue
		}

		r.logger.Debug("MIDI note",
			r.logger.Field().Uint8("channel", ch),
			r.logger.Field().Uint8("note", key),
			r.logger.Field().Uint8("velocity", vel))

		r.mu.RLock()
		hs := append([]contracts.InputHandler(nil), r.handlers[key]...)
		r.mu.RUnlock()
		for _, h := range hs {
			h(raw)
		}
	}
}

// Split cuts a packet into channel messages. Running status is honoured,
// system messages are skipped and incomplete trailing messages are dropped.
func Split(data []byte) []gomidi.Message {
	var (
		out     []gomidi.Message
		status  byte
		pending []byte
	)
	for _, b := range data {
		switch {
		case b >= 0xF8:
			// Real-time bytes may appear anywhere.
			continue
		case b >= 0xF0:
			status = 0
			pending = pending[:0]
			continue
		case b&0x80 != 0:
			status = b
			pending = append(pending[:0], b)
			continue
		case status == 0:
			continue
		}

		if len(pending) == 0 {
			pending = append(pending, status)
		}
		pending = append(pending, b)
		if len(pending) == messageLen(status) {
			out = append(out, gomidi.Message(append([]byte(nil), pending...)))
			pending = pending[:0]
		}
	}
	return out
}

func messageLen(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 2
	default:
		return 3
	}
}
