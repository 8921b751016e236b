package controller

import (
	"sync"
	"time"

	"github.com/leandrodaf/buzzer/sdk/contracts"
)

// Debouncer accepts at most one press per source within a minimum interval.
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[contracts.Source]time.Time
}

// NewDebouncer creates a debouncer with the given minimum interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval, last: make(map[contracts.Source]time.Time)}
}

// Accept reports whether a press of src at now is kept. A press is kept when
// src has no accepted press yet or the last one is strictly more than the
// interval ago; only kept presses move the reference time.
func (d *Debouncer) Accept(src contracts.Source, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.last[src]; ok && now.Sub(last) <= d.interval {
		return false
	}
	d.last[src] = now
	return true
}

// Pressed reports whether raw counts as a press under t.
func Pressed(t contracts.Trigger, raw float64) bool {
	switch t.Mode {
	case contracts.ActiveLow:
		return raw < 0.5
	case contracts.ActiveHigh:
		return raw >= 0.5
	case contracts.Threshold:
		threshold := t.Threshold
		if threshold == 0 {
			threshold = contracts.DefaultThreshold
		}
		return raw > threshold
	default:
		return false
	}
}
