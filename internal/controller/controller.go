// Package controller turns debounced presses into playback sessions and makes
// sure only one session drives the buzzer at a time.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leandrodaf/buzzer/internal/logger"
	"github.com/leandrodaf/buzzer/internal/player"
	"github.com/leandrodaf/buzzer/internal/session"
	"github.com/leandrodaf/buzzer/sdk/contracts"
)

var (
	ErrNoBindings      = errors.New("no melody bindings configured")
	ErrUnknownMelody   = errors.New("unknown melody")
	ErrDuplicateSource = errors.New("source bound twice")
	ErrNoTrigger       = errors.New("dispatch mode needs a trigger source")
	ErrAlreadyStarted  = errors.New("controller already started")
	ErrStopped         = errors.New("controller stopped")
	ErrNoMIDIInput     = errors.New("MIDI source configured without a MIDI input")
)

// defaultStepTone is how long a stepper note sounds when no length is set.
const defaultStepTone = 500 * time.Millisecond

type target struct {
	melody    contracts.Melody
	bpm       int
	indicator *contracts.PinID

	// note and tone are set for a single stepper note instead of a melody.
	note contracts.Note
	tone time.Duration
}

// Controller is the mode controller. All transitions happen under mu, which
// makes it the single place where sessions are started and stopped.
type Controller struct {
	board  contracts.Board
	inputs []contracts.InputNotifier
	player *player.Player
	logger contracts.Logger
	opts   contracts.ControllerOptions

	debouncer  *Debouncer
	triggers   map[contracts.Source]contracts.Trigger
	bySource   map[contracts.Source]target // PerSource
	cycle      []target                    // Cyclic, without the Idle slot
	scale      contracts.Melody            // Stepper
	indicators []contracts.PinID

	ctx      context.Context
	cancel   context.CancelFunc
	watchers sync.WaitGroup

	mu      sync.Mutex
	active  *session.Session
	state   contracts.ModeState
	started bool
	stopped bool
}

// New validates opts against lib and builds a controller. Nothing is
// registered on the board until Start.
func New(board contracts.Board, lib contracts.ScoreLibrary, opts contracts.ControllerOptions) (*Controller, error) {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Controller{
		board:     board,
		inputs:    opts.ExtraInputs,
		player:    player.New(board, lib, opts.BuzzerPin, opts.Logger),
		logger:    opts.Logger,
		opts:      opts,
		debouncer: NewDebouncer(opts.Debounce),
		triggers:  make(map[contracts.Source]contracts.Trigger),
		bySource:  make(map[contracts.Source]target),
	}

	resolve := func(b contracts.Binding) (target, error) {
		m, ok := lib.Melody(b.MelodyID)
		if !ok {
			return target{}, fmt.Errorf("%w: %q", ErrUnknownMelody, b.MelodyID)
		}
		bpm := player.Tempo(b.BPM, m.BPM)
		if b.Indicator != nil {
			c.indicators = append(c.indicators, *b.Indicator)
		}
		return target{melody: m, bpm: bpm, indicator: b.Indicator}, nil
	}

	switch opts.Dispatch {
	case contracts.PerSource:
		if len(opts.Bindings) == 0 {
			return nil, ErrNoBindings
		}
		for _, b := range opts.Bindings {
			src := b.Trigger.Source
			if _, dup := c.bySource[src]; dup {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateSource, src)
			}
			t, err := resolve(b)
			if err != nil {
				return nil, err
			}
			c.bySource[src] = t
			c.triggers[src] = b.Trigger
		}

	case contracts.Cyclic:
		if opts.CycleTrigger == nil {
			return nil, ErrNoTrigger
		}
		if len(opts.Cycle) == 0 {
			return nil, ErrNoBindings
		}
		for _, b := range opts.Cycle {
			t, err := resolve(b)
			if err != nil {
				return nil, err
			}
			c.cycle = append(c.cycle, t)
		}
		c.triggers[opts.CycleTrigger.Source] = *opts.CycleTrigger

	case contracts.Stepper:
		if opts.CycleTrigger == nil {
			return nil, ErrNoTrigger
		}
		m, ok := lib.Melody(opts.ScaleID)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMelody, opts.ScaleID)
		}
		c.scale = m
		c.triggers[opts.CycleTrigger.Source] = *opts.CycleTrigger
		if c.opts.StepTone <= 0 {
			c.opts.StepTone = defaultStepTone
		}

	default:
		return nil, fmt.Errorf("unknown dispatch mode %d", opts.Dispatch)
	}

	for src := range c.triggers {
		if src.Kind == contracts.MIDINote && len(c.inputs) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoMIDIInput, src)
		}
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

// Start registers one input handler per trigger source.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrStopped
	}
	if c.started {
		return ErrAlreadyStarted
	}

	for src := range c.triggers {
		handler := c.handlerFor(src)
		if src.Kind == contracts.MIDINote {
			for _, in := range c.inputs {
				if err := in.OnInputChange(src, handler); err != nil {
					return fmt.Errorf("register %s: %w", src, err)
				}
			}
			continue
		}
		if err := c.board.OnInputChange(src, handler); err != nil {
			return fmt.Errorf("register %s: %w", src, err)
		}
	}

	c.started = true
	c.logger.Info("Controller started",
		c.logger.Field().String("dispatch", c.opts.Dispatch.String()),
		c.logger.Field().Int("sources", len(c.triggers)),
		c.logger.Field().Duration("debounce", c.opts.Debounce))
	return nil
}

func (c *Controller) handlerFor(src contracts.Source) contracts.InputHandler {
	return func(raw float64) {
		c.HandleInput(src, raw)
	}
}

// HandleInput processes one raw value reported for src. It returns once the
// resulting transition is applied; it never waits out a note.
func (c *Controller) HandleInput(src contracts.Source, raw float64) {
	trigger, ok := c.triggers[src]
	if !ok || !Pressed(trigger, raw) {
		return
	}
	now := c.opts.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || c.stopped {
		return
	}
	if !c.debouncer.Accept(src, now) {
		c.logger.Debug("Press rejected by debounce", c.logger.Field().String("source", src.String()))
		return
	}

	var err error
	switch c.opts.Dispatch {
	case contracts.PerSource:
		err = c.restartLocked(c.bySource[src])
	case contracts.Cyclic:
		err = c.advanceCycleLocked()
	case contracts.Stepper:
		err = c.stepLocked()
	}
	if err != nil {
		c.logger.Error("Press could not be applied",
			c.logger.Field().String("source", src.String()),
			c.logger.Field().Error("error", err))
	}
}

func (c *Controller) restartLocked(t target) error {
	c.stopActiveLocked()
	return c.startLocked(t)
}

func (c *Controller) advanceCycleLocked() error {
	c.state.Index = (c.state.Index + 1) % (len(c.cycle) + 1)

	c.stopActiveLocked()
	c.resetOutputsLocked()

	if c.state.Index == 0 {
		c.logger.Info("Cycle reset; waiting for the next press")
		return nil
	}
	return c.startLocked(c.cycle[c.state.Index-1])
}

func (c *Controller) stepLocked() error {
	step := c.scale.Steps[c.state.Index]
	c.state.Index = (c.state.Index + 1) % len(c.scale.Steps)

	c.stopActiveLocked()
	return c.startLocked(target{
		melody: contracts.Melody{ID: c.scale.ID, Name: c.scale.Name},
		note:   step.Note,
		tone:   c.opts.StepTone,
	})
}

// startLocked hands a new session to its own goroutine.
func (c *Controller) startLocked(t target) error {
	if c.active != nil {
		return fmt.Errorf("%w: %s", contracts.ErrSessionConflict, c.active.ID)
	}

	var indicator contracts.Indicator
	if t.indicator != nil {
		indicator = player.PinIndicator{Out: c.board, Pin: *t.indicator}
	}

	s := session.Start(c.ctx, t.melody.ID, func(ctx context.Context) (contracts.Outcome, error) {
		if t.tone > 0 {
			return c.player.PlayNote(ctx, t.melody.ID, t.note, t.tone)
		}
		return c.player.Play(ctx, t.melody, t.bpm, indicator)
	})
	c.active = s
	c.state.Mode = contracts.Playing
	c.state.SessionID = s.ID
	c.state.MelodyID = t.melody.ID

	if t.tone > 0 {
		c.logger.Info("Note started",
			c.logger.Field().String("session", s.ID.String()),
			c.logger.Field().String("note", string(t.note)),
			c.logger.Field().Duration("length", t.tone))
	} else {
		c.logger.Info("Melody started",
			c.logger.Field().String("session", s.ID.String()),
			c.logger.Field().String("melody", t.melody.ID),
			c.logger.Field().Int("bpm", t.bpm))
	}

	c.watchers.Add(1)
	go c.watch(s)
	return nil
}

// stopActiveLocked cancels the active session and joins it. When it returns
// the old session has issued its silence command and released its indicator.
func (c *Controller) stopActiveLocked() {
	if c.active == nil {
		return
	}
	s := c.active
	outcome, _ := s.Stop()
	c.active = nil
	c.setIdleLocked()

	c.logger.Info("Melody interrupted",
		c.logger.Field().String("session", s.ID.String()),
		c.logger.Field().String("melody", s.MelodyID),
		c.logger.Field().String("outcome", outcome.String()))
}

// watch observes natural completion and moves the controller to Idle.
func (c *Controller) watch(s *session.Session) {
	report := s.Report()

	c.mu.Lock()
	if c.active == s {
		c.active = nil
		c.setIdleLocked()
	}
	c.mu.Unlock()

	if report.Err != nil {
		c.logger.Error("Melody failed",
			c.logger.Field().String("session", report.ID.String()),
			c.logger.Field().Error("error", report.Err))
	} else if report.Outcome == contracts.Completed {
		c.logger.Info("Melody completed",
			c.logger.Field().String("session", report.ID.String()),
			c.logger.Field().String("melody", report.MelodyID),
			c.logger.Field().Duration("elapsed", report.Ended.Sub(report.Started)))
	}

	// The hook runs outside the watcher group so it may call Stop.
	c.watchers.Done()
	if c.opts.OnSessionEnd != nil {
		c.opts.OnSessionEnd(report)
	}
}

func (c *Controller) setIdleLocked() {
	c.state.Mode = contracts.Idle
	c.state.SessionID = uuid.Nil
	c.state.MelodyID = ""
}

// resetOutputsLocked turns every known indicator off and silences the buzzer.
func (c *Controller) resetOutputsLocked() {
	for _, pin := range c.indicators {
		c.board.SetDigitalOutput(pin, false)
	}
	c.board.SendTone(c.opts.BuzzerPin, 0, 0)
}

// Stop cancels and joins the active session, silences the buzzer and turns
// the indicators off. Presses arriving afterwards are ignored. Stop is idempotent.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.stopActiveLocked()
	c.resetOutputsLocked()
	c.cancel()
	c.mu.Unlock()

	c.watchers.Wait()
	c.logger.Info("Controller stopped")
	return nil
}

// State returns a snapshot of the mode state.
func (c *Controller) State() contracts.ModeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
