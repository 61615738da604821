package tracker

import (
	"context"

	"github.com/notexe/proofpal/internal/purchase"
	"github.com/notexe/proofpal/internal/reminder"
)

// Scan runs the reminder engine over every record as of today and logs
// each fired reminder to the activity feed. If ctx ends midway the partial
// result is returned with the error: its events are already in the ledger
// and will not fire again, so callers must still deliver them.
func (s *Service) Scan(ctx context.Context) (*reminder.ScanResult, error) {
	load := func(ctx context.Context) ([]purchase.Record, error) {
		return s.store.ListRecords(ctx, purchase.Filter{})
	}

	result, err := s.engine.ScanFrom(ctx, load, s.Today())
	if result == nil {
		return nil, err
	}

	logCtx := context.WithoutCancel(ctx)
	for _, ev := range result.Events {
		s.activity(logCtx, ev.RecordID, purchase.ActionReminderFired, ev.Message)
	}

	evt := s.logger.Info()
	if err != nil {
		evt = s.logger.Warn().Err(err)
	}
	evt.Int("records", result.Records).
		Int("events", len(result.Events)).
		Int("skipped", len(result.Skipped)).
		Msg("Reminder scan finished")
	return result, err
}
