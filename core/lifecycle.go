package core

import (
	"context"
	"time"
)

// Lifecycle is the orchestration engine binding the chain, persistence,
// audit log, and external collaborators into the eight public commands of
// spec §4.2. It mirrors the shape of the teacher's core.Node: a struct that
// holds every collaborator interface and exposes one method per externally
// triggered operation, with no package-level mutable state of its own
// beyond the striped per-sheet locks.
type Lifecycle struct {
	chain   *Chain
	repo    Repository
	audit   AuditSink
	ai      AIProvider
	objects ObjectStore
	cfg     Config
	locks   *stripedLocks
	metrics *Metrics
}

// NewLifecycle wires the collaborators together. locks defaults to 64
// stripes when lockStripes is 0, matching newStripedLocks' own default.
func NewLifecycle(chain *Chain, repo Repository, audit AuditSink, ai AIProvider, objects ObjectStore, cfg Config, lockStripes int) *Lifecycle {
	return &Lifecycle{
		chain:   chain,
		repo:    repo,
		audit:   audit,
		ai:      ai,
		objects: objects,
		cfg:     cfg,
		locks:   newStripedLocks(lockStripes),
	}
}

// withSheet loads the sheet, holds its striped lock for the duration of fn,
// and persists whatever fn leaves on the sheet unless fn returns an error
// (spec §5 #2: per-sheet lock scoped to one command's duration).
func (l *Lifecycle) withSheet(ctx context.Context, sheetID string, fn func(s *Sheet) error) (*Sheet, error) {
	mu := l.locks.lockFor(sheetID)
	mu.Lock()
	defer mu.Unlock()

	s, err := l.repo.GetSheet(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	if err := l.repo.SaveSheet(ctx, s); err != nil {
		return nil, wrapErr(KindPersistenceFailed, "save sheet", err)
	}
	return s, nil
}

// Chain exposes the underlying Chain for read-only queries (block lookups,
// validation, stats) by callers that hold a Lifecycle but not the Chain it
// was built with, e.g. httpapi/services.
func (l *Lifecycle) Chain() *Chain { return l.chain }

// SetMetrics wires a Metrics collector into the lifecycle engine. Optional;
// commands run unchanged (and cheaply, since every Metrics method is
// nil-safe) if it is never called.
func (l *Lifecycle) SetMetrics(m *Metrics) { l.metrics = m }

// recordEvent appends an Event to the repository and mirrors it into the
// audit sink, the two side effects every command performs after a
// successful block append (spec §3 Event, §4.4 Audit Logger).
func (l *Lifecycle) recordEvent(ctx context.Context, sheetID, eventType string, data map[string]interface{}, blockHash, actor string) error {
	ev := Event{
		EventID:   newID(),
		SheetID:   sheetID,
		EventType: eventType,
		EventData: data,
		BlockHash: blockHash,
		Actor:     actor,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := l.repo.AppendEvent(ctx, ev); err != nil {
		return wrapErr(KindPersistenceFailed, "append event", err)
	}
	if l.audit != nil {
		if err := l.audit.Append(ctx, sheetID, eventType, data, blockHash, actor); err != nil {
			return wrapErr(KindPersistenceFailed, "append audit entry", err)
		}
	}
	return nil
}
