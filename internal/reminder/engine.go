package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/notexe/proofpal/internal/deadline"
	"github.com/notexe/proofpal/internal/metrics"
	"github.com/notexe/proofpal/internal/purchase"
)

// Engine turns deadline crossings into reminder events, firing each
// (record, kind, threshold) triple at most once per deadline. Scans,
// Reschedule and Invalidate hold the same lock, so at most one of them
// touches the ledger at a time.
type Engine struct {
	mu     sync.Mutex
	ledger Ledger
	policy deadline.Policy
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used to stamp ledger entries.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine writing to ledger.
func NewEngine(ledger Ledger, policy deadline.Policy, opts ...Option) *Engine {
	e := &Engine{
		ledger: ledger,
		policy: policy,
		now:    time.Now,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("component", "reminder").Logger()
	return e
}

// Policy returns the thresholds the engine applies.
func (e *Engine) Policy() deadline.Policy {
	return e.policy
}

// Scan classifies every tracked deadline of records on today and emits an
// event for each threshold crossed since the ledger last saw it.
//
// Thresholds are visited from the largest down. Before the deadline each
// newly crossed threshold yields its own event. Once the deadline has
// passed, all newly crossed thresholds are recorded but only the lowest
// one yields an event, so a long gap between scans produces a single
// overdue reminder instead of a burst of stale ones. A ledger entry only
// counts for the deadline it fired against.
//
// Malformed records and per-record ledger write failures are reported in
// Skipped. Failing to read the ledger aborts the scan. When ctx ends
// midway the result so far is returned along with the context error; its
// events are already in the ledger and still have to be delivered.
func (e *Engine) Scan(ctx context.Context, records []purchase.Record, today time.Time) (*ScanResult, error) {
	return e.ScanFrom(ctx, func(context.Context) ([]purchase.Record, error) { return records, nil }, today)
}

// ScanFrom is Scan over the records returned by load. load runs under the
// engine lock, so an edit made through Reschedule is either fully visible
// to the scan or not started yet.
func (e *Engine) ScanFrom(ctx context.Context, load Loader, today time.Time) (*ScanResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	defer func() { metrics.ScanDuration.Observe(time.Since(start).Seconds()) }()

	records, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load purchases: %w", err)
	}

	entries, err := e.ledger.ListLedgerEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reminder ledger: %w", err)
	}
	fired := make(map[Key]time.Time, len(entries))
	for _, entry := range entries {
		fired[entry.Key()] = entry.Deadline
	}

	today = purchase.Day(today)
	result := &ScanResult{Records: len(records)}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := rec.Validate(); err != nil {
			e.skip(result, rec.ID, err)
			continue
		}

		statuses := deadline.Evaluate(rec, today, e.policy)
		for _, status := range statuses.All() {
			if !status.Tracked() {
				continue
			}
			events, recorded, err := e.fire(ctx, rec, status, fired)
			result.Events = append(result.Events, events...)
			result.Recorded += recorded
			if err != nil {
				e.skip(result, rec.ID, err)
				break
			}
		}
	}

	metrics.TrackedRecords.Set(float64(len(records)))
	e.logger.Debug().
		Int("records", len(records)).
		Int("events", len(result.Events)).
		Int("skipped", len(result.Skipped)).
		Str("today", today.Format(time.DateOnly)).
		Msg("Reminder scan finished")

	return result, nil
}

// Reschedule runs change while no scan is in progress. change is expected
// to persist a schedule edit together with the matching ledger
// invalidation.
func (e *Engine) Reschedule(change func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return change()
}

func (e *Engine) fire(ctx context.Context, rec purchase.Record, status deadline.Status, fired map[Key]time.Time) ([]Event, int, error) {
	remaining := status.Remaining()

	var crossed []int
	for _, threshold := range e.policy.Thresholds {
		if remaining > threshold {
			continue
		}
		if due, ok := fired[Key{RecordID: rec.ID, Kind: status.Kind, Threshold: threshold}]; ok && due.Equal(status.Deadline) {
			continue
		}
		crossed = append(crossed, threshold)
	}
	if len(crossed) == 0 {
		return nil, 0, nil
	}

	firedAt := e.now().UTC()
	var events []Event
	recorded := 0
	for i, threshold := range crossed {
		notify := remaining >= 0 || i == len(crossed)-1
		entry := LedgerEntry{
			RecordID:  rec.ID,
			Kind:      status.Kind,
			Threshold: threshold,
			Deadline:  status.Deadline,
			FiredAt:   firedAt,
			Notified:  notify,
		}
		if err := e.ledger.UpsertLedgerEntry(ctx, entry); err != nil {
			return events, recorded, fmt.Errorf("%s threshold %d: %w", status.Kind, threshold, err)
		}
		fired[entry.Key()] = entry.Deadline
		recorded++

		if !notify {
			continue
		}
		events = append(events, Event{
			RecordID:  rec.ID,
			Label:     rec.Label,
			Store:     rec.Store,
			Kind:      status.Kind,
			Threshold: threshold,
			State:     status.State,
			Deadline:  status.Deadline,
			Remaining: remaining,
			Message:   message(rec.Label, rec.Store, status.Kind, status.Deadline, remaining),
			FiredAt:   firedAt,
		})
		metrics.RemindersFiredTotal.WithLabelValues(string(status.Kind)).Inc()
	}
	return events, recorded, nil
}

func (e *Engine) skip(result *ScanResult, recordID string, err error) {
	result.Skipped = append(result.Skipped, Skip{RecordID: recordID, Err: err})
	metrics.ScanSkippedTotal.Inc()
	e.logger.Warn().Err(err).Str("record_id", recordID).Msg("Skipping record during reminder scan")
}

// Invalidate forgets every fired threshold of the given kinds for a record,
// so reminders re-fire against a changed schedule. With no kinds given it
// clears both.
func (e *Engine) Invalidate(ctx context.Context, recordID string, kinds ...deadline.Kind) error {
	if len(kinds) == 0 {
		kinds = deadline.Kinds
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, kind := range kinds {
		if err := e.ledger.DeleteLedgerEntries(ctx, recordID, kind); err != nil {
			return fmt.Errorf("invalidate %s reminders of %s: %w", kind, recordID, err)
		}
		e.logger.Debug().Str("record_id", recordID).Str("kind", string(kind)).Msg("Reminder ledger invalidated")
	}
	return nil
}
