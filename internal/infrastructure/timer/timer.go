// Package timer implements deadline timers for workflow instances. A timer is
// a pure deadline associated with a (processID, stage) pair; the service loop
// fires the engine's timeout callback when a deadline passes. Firing after the
// instance left the armed stage is a silent no-op on the engine side.
package timer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/edbridge/onboarding-engine/internal/domain/workflow"
	"github.com/edbridge/onboarding-engine/pkg/timeutil"
)

// Callback is invoked when a deadline fires. The stage is the one the timer
// was armed for, so the receiver can detect stale timers.
type Callback func(processID string, stage workflow.Stage)

// ArmedTimer is one registered deadline.
type ArmedTimer struct {
	ProcessID string
	Stage     workflow.Stage
	Deadline  time.Time
}

// Config contains configuration for the timer Service.
type Config struct {
	// Logger for structured logging.
	Logger *slog.Logger

	// Resolution is how often deadlines are checked (default: 1s).
	Resolution time.Duration

	// Clock returns the current time; overridable in tests.
	Clock func() time.Time
}

// Service owns the deadline registry and the firing loop.
type Service struct {
	mu        sync.RWMutex
	deadlines map[string]ArmedTimer

	callback   Callback
	logger     *slog.Logger
	resolution time.Duration
	clock      func() time.Time

	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a timer service firing the given callback.
func NewService(callback Callback, config Config) *Service {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Resolution <= 0 {
		config.Resolution = time.Second
	}
	if config.Clock == nil {
		config.Clock = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		deadlines:  make(map[string]ArmedTimer),
		callback:   callback,
		logger:     config.Logger,
		resolution: config.Resolution,
		clock:      config.Clock,
	}
}

// Arm registers a deadline for the instance computed from the advisory
// duration string. A missing or unparseable advisory value disables the timer
// (fail-open to "no timeout") and Arm returns nil. At most one timer exists
// per process; arming replaces any previous one.
func (s *Service) Arm(processID string, stage workflow.Stage, advisory string) *time.Time {
	d, err := timeutil.ParseAdvisoryDuration(advisory)
	if err != nil {
		if advisory != "" {
			s.logger.Debug("timeout disabled for instance",
				"process_id", processID,
				"advisory", advisory,
				"error", err,
			)
		}
		s.Disarm(processID)
		return nil
	}

	deadline := s.clock().Add(d)

	s.mu.Lock()
	s.deadlines[processID] = ArmedTimer{
		ProcessID: processID,
		Stage:     stage,
		Deadline:  deadline,
	}
	s.mu.Unlock()

	s.logger.Debug("timer armed",
		"process_id", processID,
		"stage", stage.String(),
		"deadline", deadline.Format(time.RFC3339),
	)
	return &deadline
}

// Disarm removes any timer for the process.
func (s *Service) Disarm(processID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deadlines, processID)
}

// Armed returns the registered timer for the process, if any.
func (s *Service) Armed(processID string) (ArmedTimer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.deadlines[processID]
	return t, ok
}

// Start begins the firing loop.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runLoop()

	s.logger.Info("timer service started", "resolution", s.resolution.String())
}

// Stop stops the firing loop and waits for in-flight callbacks.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("timer service stopped")
}

// runLoop checks deadlines on every tick and fires due timers.
func (s *Service) runLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.resolution)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.fireDue()
		}
	}
}

// fireDue removes and fires every timer whose deadline has passed. The timer
// is deregistered before the callback runs; the engine's own stage check is
// the authority on staleness.
func (s *Service) fireDue() {
	now := s.clock()

	s.mu.Lock()
	due := make([]ArmedTimer, 0)
	for id, t := range s.deadlines {
		if !t.Deadline.After(now) {
			due = append(due, t)
			delete(s.deadlines, id)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		s.logger.Info("timer fired",
			"process_id", t.ProcessID,
			"stage", t.Stage.String(),
		)
		s.wg.Add(1)
		go func(t ArmedTimer) {
			defer s.wg.Done()
			s.callback(t.ProcessID, t.Stage)
		}(t)
	}
}
