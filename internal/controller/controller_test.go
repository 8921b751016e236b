package controller

import (
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/buzzer/internal/fakeboard"
	"github.com/leandrodaf/buzzer/internal/logger"
	"github.com/leandrodaf/buzzer/internal/score"
	"github.com/leandrodaf/buzzer/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const buzzer contracts.PinID = 8

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var (
	btnA = contracts.Source{Kind: contracts.Digital, Pin: 2}
	btnB = contracts.Source{Kind: contracts.Digital, Pin: 3}
	pot  = contracts.Source{Kind: contracts.Analog, Pin: 0}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func testTable(t *testing.T) *score.Table {
	t.Helper()
	table := score.NewTable(map[contracts.Note]uint16{"C4": 261, "D4": 294, "E4": 330})
	for _, m := range []contracts.Melody{
		{ID: "one", BPM: 60, Steps: []contracts.Step{{Note: "C4", Beats: 1}, {Note: "C4", Beats: 1}, {Note: "C4", Beats: 1}, {Note: "C4", Beats: 1}}},
		{ID: "two", BPM: 60, Steps: []contracts.Step{{Note: "D4", Beats: 1}, {Note: "D4", Beats: 1}, {Note: "D4", Beats: 1}, {Note: "D4", Beats: 1}}},
		{ID: "short", BPM: 6000, Steps: []contracts.Step{{Note: "E4", Beats: 1}, {Note: "E4", Beats: 1}}},
		{ID: "scale", Steps: []contracts.Step{{Note: "C4", Beats: 1}, {Note: "D4", Beats: 1}, {Note: "E4", Beats: 1}}},
	} {
		require.NoError(t, table.Add(m))
	}
	return table
}

func newController(t *testing.T, board *fakeboard.Board, clock *fakeClock, opts ...contracts.Option) *Controller {
	t.Helper()
	o := contracts.ControllerOptions{
		Logger:    logger.NewNopLogger(),
		BuzzerPin: buzzer,
		Debounce:  200 * time.Millisecond,
		StepTone:  500 * time.Millisecond,
		Now:       clock.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	c, err := New(board, testTable(t), o)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Stop() })
	return c
}

func pin(p contracts.PinID) *contracts.PinID { return &p }

func indexOf(events []fakeboard.Event, match func(fakeboard.Event) bool) int {
	for i, e := range events {
		if match(e) {
			return i
		}
	}
	return -1
}

func TestController_PerSourceRestartIsSerialized(t *testing.T) {
	board := fakeboard.New()
	clock := newClock()
	ledA, ledB := contracts.PinID(4), contracts.PinID(5)
	ends := make(chan contracts.SessionReport, 8)

	c := newController(t, board, clock,
		contracts.WithPerSource(
			contracts.Binding{Trigger: contracts.Trigger{Source: btnA, Mode: contracts.ActiveLow}, MelodyID: "one", Indicator: pin(ledA)},
			contracts.Binding{Trigger: contracts.Trigger{Source: btnB, Mode: contracts.ActiveLow}, MelodyID: "two", Indicator: pin(ledB)},
		),
		contracts.WithSessionEndHook(func(r contracts.SessionReport) { ends <- r }),
	)
	require.NoError(t, c.Start())
	assert.True(t, board.Registered(btnA))
	assert.True(t, board.Registered(btnB))

	// Releasing a pull-up button is not a press.
	board.Input(btnA, 1)
	assert.Equal(t, contracts.Idle, c.State().Mode)

	board.Input(btnA, 0)
	first := c.State()
	assert.Equal(t, contracts.Playing, first.Mode)
	assert.Equal(t, "one", first.MelodyID)
	require.Eventually(t, func() bool { return board.PinHigh(ledA) }, waitFor, tick)

	clock.Advance(250 * time.Millisecond)
	board.Input(btnB, 0)

	second := c.State()
	assert.Equal(t, "two", second.MelodyID)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.False(t, board.PinHigh(ledA), "old indicator must be off once the press returns")

	select {
	case r := <-ends:
		assert.Equal(t, first.SessionID, r.ID)
		assert.Equal(t, contracts.Cancelled, r.Outcome)
	case <-time.After(waitFor):
		t.Fatal("first session was not reported")
	}

	require.Eventually(t, func() bool { return len(board.Tones()) >= 3 }, waitFor, tick)
	assert.Equal(t, []fakeboard.Tone{
		{Pin: buzzer, FreqHz: 261, DurationMs: 800},
		{Pin: buzzer},
		{Pin: buzzer, FreqHz: 294, DurationMs: 800},
	}, board.Tones()[:3])

	events := board.Events()
	ledAOff := indexOf(events, func(e fakeboard.Event) bool {
		return e.Kind == fakeboard.DigitalEvent && e.Pin == ledA && !e.High
	})
	firstD4 := indexOf(events, func(e fakeboard.Event) bool {
		return e.Kind == fakeboard.ToneEvent && e.FreqHz == 294
	})
	require.NotEqual(t, -1, ledAOff)
	require.NotEqual(t, -1, firstD4)
	assert.Less(t, ledAOff, firstD4)
}

func TestController_DebouncedPressKeepsSession(t *testing.T) {
	board := fakeboard.New()
	clock := newClock()
	c := newController(t, board, clock, contracts.WithPerSource(
		contracts.Binding{Trigger: contracts.Trigger{Source: btnA, Mode: contracts.ActiveHigh}, MelodyID: "one"},
	))
	require.NoError(t, c.Start())

	board.Input(btnA, 1)
	id := c.State().SessionID

	clock.Advance(150 * time.Millisecond)
	board.Input(btnA, 1)
	assert.Equal(t, id, c.State().SessionID)

	clock.Advance(100 * time.Millisecond)
	board.Input(btnA, 1)
	assert.NotEqual(t, id, c.State().SessionID, "press after the interval restarts from the beginning")
	assert.Equal(t, contracts.Playing, c.State().Mode)
}

func TestController_NaturalCompletionGoesIdle(t *testing.T) {
	board := fakeboard.New()
	clock := newClock()
	ends := make(chan contracts.SessionReport, 1)
	led := contracts.PinID(6)

	c := newController(t, board, clock,
		contracts.WithPerSource(contracts.Binding{
			Trigger:   contracts.Trigger{Source: btnA, Mode: contracts.ActiveLow},
			MelodyID:  "short",
			Indicator: pin(led),
		}),
		contracts.WithSessionEndHook(func(r contracts.SessionReport) { ends <- r }),
	)
	require.NoError(t, c.Start())

	board.Input(btnA, 0)

	select {
	case r := <-ends:
		assert.Equal(t, contracts.Completed, r.Outcome)
		assert.Equal(t, "short", r.MelodyID)
	case <-time.After(waitFor):
		t.Fatal("session did not complete")
	}

	st := c.State()
	assert.Equal(t, contracts.Idle, st.Mode)
	assert.Empty(t, st.MelodyID)
	assert.False(t, board.PinHigh(led))

	tones := board.Tones()
	require.NotEmpty(t, tones)
	assert.Equal(t, fakeboard.Tone{Pin: buzzer}, tones[len(tones)-1])
}

func TestController_CyclicScenario(t *testing.T) {
	board := fakeboard.New()
	clock := newClock()
	led1, led2 := contracts.PinID(13), contracts.PinID(12)

	c := newController(t, board, clock, contracts.WithCycle(
		contracts.Trigger{Source: pot, Mode: contracts.Threshold},
		contracts.Binding{MelodyID: "one", BPM: 100, Indicator: pin(led1)},
		contracts.Binding{MelodyID: "two", BPM: 120, Indicator: pin(led2)},
	))
	require.NoError(t, c.Start())
	assert.True(t, board.Registered(pot))

	board.Input(pot, 0.3)
	assert.Equal(t, contracts.Idle, c.State().Mode)

	// Idle -> one
	board.Input(pot, 0.9)
	st := c.State()
	assert.Equal(t, 1, st.Index)
	assert.Equal(t, "one", st.MelodyID)
	require.Eventually(t, func() bool { return board.PinHigh(led1) }, waitFor, tick)
	assert.False(t, board.PinHigh(led2))

	// one -> two
	clock.Advance(250 * time.Millisecond)
	board.Input(pot, 0.9)
	st = c.State()
	assert.Equal(t, 2, st.Index)
	assert.Equal(t, "two", st.MelodyID)
	assert.False(t, board.PinHigh(led1))
	require.Eventually(t, func() bool { return board.PinHigh(led2) }, waitFor, tick)

	// two -> Idle
	clock.Advance(250 * time.Millisecond)
	board.Input(pot, 0.9)
	st = c.State()
	assert.Equal(t, 0, st.Index)
	assert.Equal(t, contracts.Idle, st.Mode)
	assert.False(t, board.PinHigh(led1))
	assert.False(t, board.PinHigh(led2))

	tones := board.Tones()
	assert.Equal(t, fakeboard.Tone{Pin: buzzer}, tones[len(tones)-1])

	// Held above the threshold: sampled again inside the interval.
	board.Input(pot, 0.9)
	assert.Equal(t, contracts.Idle, c.State().Mode)
}

func TestController_Stepper(t *testing.T) {
	board := fakeboard.New()
	clock := newClock()
	c := newController(t, board, clock, contracts.WithStepper(
		contracts.Trigger{Source: btnA, Mode: contracts.ActiveLow}, "scale",
	))
	require.NoError(t, c.Start())

	hasTone := func(hz uint16) func() bool {
		return func() bool {
			for _, tn := range board.Tones() {
				if tn.FreqHz == hz && tn.DurationMs == 500 {
					return true
				}
			}
			return false
		}
	}

	board.Input(btnA, 0)
	require.Eventually(t, hasTone(261), waitFor, tick)
	assert.Equal(t, 1, c.State().Index)

	clock.Advance(250 * time.Millisecond)
	board.Input(btnA, 0)
	require.Eventually(t, hasTone(294), waitFor, tick)

	clock.Advance(250 * time.Millisecond)
	board.Input(btnA, 0)
	require.Eventually(t, hasTone(330), waitFor, tick)
	assert.Equal(t, 0, c.State().Index, "scale wraps around")
}

func TestController_StepperToneLength(t *testing.T) {
	board := fakeboard.New()
	clock := newClock()
	c := newController(t, board, clock,
		contracts.WithStepper(contracts.Trigger{Source: btnA, Mode: contracts.ActiveLow}, "scale"),
		contracts.WithStepTone(700*time.Millisecond),
	)
	require.NoError(t, c.Start())

	board.Input(btnA, 0)
	require.Eventually(t, func() bool { return len(board.Tones()) > 0 }, waitFor, tick)
	assert.Equal(t, fakeboard.Tone{Pin: buzzer, FreqHz: 261, DurationMs: 700}, board.Tones()[0])

	require.NoError(t, c.Stop())
	assert.Equal(t, contracts.Idle, c.State().Mode)
}

func TestController_SessionEndHookMayStop(t *testing.T) {
	board := fakeboard.New()
	clock := newClock()
	stopped := make(chan error, 1)

	var c *Controller
	c = newController(t, board, clock,
		contracts.WithPerSource(contracts.Binding{
			Trigger:  contracts.Trigger{Source: btnA, Mode: contracts.ActiveLow},
			MelodyID: "short",
		}),
		contracts.WithSessionEndHook(func(contracts.SessionReport) { stopped <- c.Stop() }),
	)
	require.NoError(t, c.Start())

	board.Input(btnA, 0)

	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Stop called from the session end hook did not return")
	}

	clock.Advance(time.Second)
	board.Input(btnA, 0)
	assert.Equal(t, contracts.Idle, c.State().Mode, "presses after Stop are ignored")
}

func TestController_StopQuiescesAndIgnoresInput(t *testing.T) {
	board := fakeboard.New()
	clock := newClock()
	led := contracts.PinID(4)
	c := newController(t, board, clock, contracts.WithPerSource(
		contracts.Binding{Trigger: contracts.Trigger{Source: btnA, Mode: contracts.ActiveLow}, MelodyID: "one", Indicator: pin(led)},
	))
	require.NoError(t, c.Start())

	board.Input(btnA, 0)
	require.Eventually(t, func() bool { return board.PinHigh(led) }, waitFor, tick)

	require.NoError(t, c.Stop())
	assert.Equal(t, contracts.Idle, c.State().Mode)
	assert.False(t, board.PinHigh(led))

	tones := board.Tones()
	assert.Equal(t, fakeboard.Tone{Pin: buzzer}, tones[len(tones)-1])

	clock.Advance(time.Second)
	board.Input(btnA, 0)
	assert.Equal(t, contracts.Idle, c.State().Mode)
	assert.Len(t, board.Tones(), len(tones))

	assert.NoError(t, c.Stop())
	assert.ErrorIs(t, c.Start(), ErrStopped)
}

func TestController_StartTwice(t *testing.T) {
	c := newController(t, fakeboard.New(), newClock(), contracts.WithPerSource(
		contracts.Binding{Trigger: contracts.Trigger{Source: btnA}, MelodyID: "one"},
	))
	require.NoError(t, c.Start())
	assert.ErrorIs(t, c.Start(), ErrAlreadyStarted)
}

func TestController_InputBeforeStartIgnored(t *testing.T) {
	c := newController(t, fakeboard.New(), newClock(), contracts.WithPerSource(
		contracts.Binding{Trigger: contracts.Trigger{Source: btnA}, MelodyID: "one"},
	))
	c.HandleInput(btnA, 0)
	assert.Equal(t, contracts.Idle, c.State().Mode)
}

func TestController_MIDISourceUsesExtraInput(t *testing.T) {
	board := fakeboard.New()
	pad := fakeboard.New()
	key := contracts.Source{Kind: contracts.MIDINote, Pin: 60}

	c := newController(t, board, newClock(),
		contracts.WithInputNotifier(pad),
		contracts.WithPerSource(contracts.Binding{
			Trigger:  contracts.Trigger{Source: key, Mode: contracts.Threshold, Threshold: 0.01},
			MelodyID: "one",
		}),
	)
	require.NoError(t, c.Start())
	assert.True(t, pad.Registered(key))
	assert.False(t, board.Registered(key))

	pad.Input(key, 100.0/127)
	assert.Equal(t, "one", c.State().MelodyID)
	require.Eventually(t, func() bool { return len(board.Tones()) > 0 }, waitFor, tick)
}

func TestController_SessionConflictAssertion(t *testing.T) {
	c := newController(t, fakeboard.New(), newClock(), contracts.WithPerSource(
		contracts.Binding{Trigger: contracts.Trigger{Source: btnA}, MelodyID: "one"},
	))

	c.mu.Lock()
	require.NoError(t, c.startLocked(c.bySource[btnA]))
	err := c.startLocked(c.bySource[btnA])
	c.mu.Unlock()

	assert.ErrorIs(t, err, contracts.ErrSessionConflict)
}

func TestNew_Validation(t *testing.T) {
	trigger := contracts.Trigger{Source: btnA}
	tests := []struct {
		name string
		opts contracts.ControllerOptions
		want error
	}{
		{
			name: "no bindings",
			opts: contracts.ControllerOptions{Dispatch: contracts.PerSource},
			want: ErrNoBindings,
		},
		{
			name: "unknown melody",
			opts: contracts.ControllerOptions{Bindings: []contracts.Binding{{Trigger: trigger, MelodyID: "missing"}}},
			want: ErrUnknownMelody,
		},
		{
			name: "duplicate source",
			opts: contracts.ControllerOptions{Bindings: []contracts.Binding{
				{Trigger: trigger, MelodyID: "one"},
				{Trigger: trigger, MelodyID: "two"},
			}},
			want: ErrDuplicateSource,
		},
		{
			name: "cycle without trigger",
			opts: contracts.ControllerOptions{Dispatch: contracts.Cyclic, Cycle: []contracts.Binding{{MelodyID: "one"}}},
			want: ErrNoTrigger,
		},
		{
			name: "empty cycle",
			opts: contracts.ControllerOptions{Dispatch: contracts.Cyclic, CycleTrigger: &trigger},
			want: ErrNoBindings,
		},
		{
			name: "stepper with unknown scale",
			opts: contracts.ControllerOptions{Dispatch: contracts.Stepper, CycleTrigger: &trigger, ScaleID: "nope"},
			want: ErrUnknownMelody,
		},
		{
			name: "midi without input",
			opts: contracts.ControllerOptions{Bindings: []contracts.Binding{{
				Trigger:  contracts.Trigger{Source: contracts.Source{Kind: contracts.MIDINote, Pin: 60}},
				MelodyID: "one",
			}}},
			want: ErrNoMIDIInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(fakeboard.New(), testTable(t), tt.opts)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
