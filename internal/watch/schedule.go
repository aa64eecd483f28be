package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Schedule triggers periodic re-runs from a cron expression.
type Schedule struct {
	sched   cron.Schedule
	logger  *zap.Logger
	running bool
	mu      sync.Mutex
}

// ParseCron parses a standard five-field cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// NewSchedule creates a schedule from a cron expression.
func NewSchedule(expr string, logger *zap.Logger) (*Schedule, error) {
	sched, err := ParseCron(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Schedule{sched: sched, logger: logger}, nil
}

// Next returns the next firing time after t.
func (s *Schedule) Next(t time.Time) time.Time {
	return s.sched.Next(t)
}

// Run fires runFunc at each scheduled time until ctx is cancelled.
// Overlapping runs are skipped.
func (s *Schedule) Run(ctx context.Context, runFunc func(context.Context) error) {
	for {
		next := s.sched.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.mu.Lock()
		if s.running {
			s.mu.Unlock()
			s.logger.Warn("scheduled run skipped, previous run still active")
			continue
		}
		s.running = true
		s.mu.Unlock()

		go func() {
			if err := runFunc(ctx); err != nil {
				s.logger.Error("scheduled run failed", zap.Error(err))
			}
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()
	}
}
