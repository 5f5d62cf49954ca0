package core

import "context"

// Repository is the full persistence surface the lifecycle engine needs,
// beyond the chain's own BlockStore. It is implemented by package store
// (both the Postgres-backed and in-memory variants), kept here as a narrow
// interface so core never imports a database driver directly — the same
// separation the teacher draws between core/ledger.go (filesystem only)
// and anything network- or driver-backed.
type Repository interface {
	GetSheet(ctx context.Context, sheetID string) (*Sheet, error)
	SaveSheet(ctx context.Context, s *Sheet) error
	// FindSheetByFileHash looks up a sheet by its original scanned-file
	// hash, the dedup key createScan idempotency checks against (spec
	// §4.2 Idempotency, §8 scenario 6). Returns a KindNotFound error if no
	// sheet was ever scanned with that file hash.
	FindSheetByFileHash(ctx context.Context, fileHash string) (*Sheet, error)

	AppendEvent(ctx context.Context, ev Event) error
	EventsBySheet(ctx context.Context, sheetID string) ([]Event, error)

	SaveSignature(ctx context.Context, sheetID string, attemptID string, sig Signature) error
	LoadSignatures(ctx context.Context, sheetID string, attemptID string) ([]Signature, error)

	CreateIntervention(ctx context.Context, hi HumanIntervention) error
	ResolveIntervention(ctx context.Context, interventionID string, resolution string) (HumanIntervention, error)
	ListInterventions(ctx context.Context, status string) ([]HumanIntervention, error)

	SaveAnswerKey(ctx context.Context, ak AnswerKey) error
	GetAnswerKey(ctx context.Context, examID string) (*AnswerKey, error)

	SaveEvaluation(ctx context.Context, ev Evaluation) error
	GetEvaluation(ctx context.Context, sheetID string) (*Evaluation, error)

	SaveResult(ctx context.Context, r Result) error
	GetResultByRoll(ctx context.Context, rollNumber string) (*Result, error)
}

// Event is a persisted lifecycle event (spec §3, used for the
// totally-ordered-per-sheet invariant in spec §8 invariant 2).
type Event struct {
	EventID   string                 `json:"event_id"`
	SheetID   string                 `json:"sheet_id"`
	EventType string                 `json:"event_type"`
	EventData map[string]interface{} `json:"event_data"`
	BlockHash string                 `json:"block_hash,omitempty"`
	Actor     string                 `json:"actor"`
	Timestamp string                 `json:"timestamp"`
}

// AuditSink is the narrow interface the lifecycle engine uses to mirror
// every event into the audit log, implemented by package audit.
type AuditSink interface {
	Append(ctx context.Context, sheetID, eventType string, eventData map[string]interface{}, blockHash, actor string) error
}
