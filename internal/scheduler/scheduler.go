package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/notexe/proofpal/internal/metrics"
	"github.com/notexe/proofpal/internal/reminder"
)

// deliveryGrace bounds delivery of events from a scan whose context ended.
const deliveryGrace = 10 * time.Second

// Scanner runs one reminder scan over the current records.
type Scanner interface {
	Scan(ctx context.Context) (*reminder.ScanResult, error)
}

// Notifier delivers a fired reminder somewhere a person will see it.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, ev reminder.Event) error
}

// Scheduler runs periodic reminder scans and hands every fired event to
// each notifier.
type Scheduler struct {
	scanner   Scanner
	notifiers []Notifier
	interval  time.Duration
	logger    zerolog.Logger
}

// New creates a scheduler that scans every interval.
func New(scanner Scanner, interval time.Duration, notifiers ...Notifier) *Scheduler {
	return &Scheduler{
		scanner:   scanner,
		notifiers: notifiers,
		interval:  interval,
		logger:    log.Logger.With().Str("component", "scheduler").Logger(),
	}
}

// Run blocks and runs tick() on interval + immediately on start.
// It exits when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", s.interval)
	}

	s.logger.Info().Dur("interval", s.interval).Int("notifiers", len(s.notifiers)).Msg("Started")

	// Run immediately on start
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Shutting down...")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Tick runs a single scan and delivers its events. It returns the number
// of events fired. A scan cut short by ctx still delivers what it fired,
// within a short grace period, and then reports the context error.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	result, err := s.scanner.Scan(ctx)
	if result == nil {
		return 0, err
	}

	deliverCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		deliverCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), deliveryGrace)
		defer cancel()
	}

	for _, ev := range result.Events {
		for _, n := range s.notifiers {
			if err := n.Notify(deliverCtx, ev); err != nil {
				metrics.NotificationErrorsTotal.WithLabelValues(n.Name()).Inc()
				s.logger.Error().Err(err).
					Str("notifier", n.Name()).
					Str("record_id", ev.RecordID).
					Int("threshold", ev.Threshold).
					Msg("Notification failed")
			}
		}
	}
	return len(result.Events), err
}

func (s *Scheduler) tick(ctx context.Context) {
	s.logger.Debug().Msg("Checking reminders...")

	n, err := s.Tick(ctx)
	if n > 0 {
		s.logger.Info().Int("events", n).Msg("Reminders sent")
	}
	switch {
	case err != nil:
		s.logger.Error().Err(err).Msg("Reminder scan failed")
	case n == 0:
		s.logger.Debug().Msg("No reminders to report.")
	}
}
