// Package session runs one cancellable, joinable melody playback on its own goroutine.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/leandrodaf/buzzer/sdk/contracts"
)

// RunFunc is the body of a session. It must return promptly once ctx is done.
type RunFunc func(ctx context.Context) (contracts.Outcome, error)

// Session is one in-flight playback.
type Session struct {
	ID       uuid.UUID
	MelodyID string
	Started  time.Time

	cancel  context.CancelFunc
	done    chan struct{}
	outcome contracts.Outcome
	err     error
	ended   time.Time
}

// Start launches run on a new goroutine.
func Start(parent context.Context, melodyID string, run RunFunc) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		ID:       uuid.New(),
		MelodyID: melodyID,
		Started:  time.Now(),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer cancel()
		s.outcome, s.err = run(ctx)
		s.ended = time.Now()
	}()
	return s
}

// Cancel asks the session to stop. It does not wait.
func (s *Session) Cancel() {
	s.cancel()
}

// Done is closed once the session goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session goroutine has exited and returns its result.
func (s *Session) Wait() (contracts.Outcome, error) {
	<-s.done
	return s.outcome, s.err
}

// Stop cancels the session and waits for it to exit.
func (s *Session) Stop() (contracts.Outcome, error) {
	s.Cancel()
	return s.Wait()
}

// Report describes the finished session. It blocks until the session has exited.
func (s *Session) Report() contracts.SessionReport {
	<-s.done
	return contracts.SessionReport{
		ID:       s.ID,
		MelodyID: s.MelodyID,
		Outcome:  s.outcome,
		Err:      s.err,
		Started:  s.Started,
		Ended:    s.ended,
	}
}
