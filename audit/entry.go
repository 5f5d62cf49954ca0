// Package audit implements the independent, human-inspectable mirror of
// every ledger event: one append-only JSON document per sheet plus a
// master document that mirrors every append, each entry carrying its own
// integrity hash (spec §4.5, §3 AuditLogEntry).
package audit

import (
	"time"

	"github.com/google/uuid"

	"omrledger/core"
)

// Entry is one audit log line (spec §3 AuditLogEntry exactly).
type Entry struct {
	LogID     string                 `json:"log_id"`
	SheetID   string                 `json:"sheet_id"`
	EventType string                 `json:"event_type"`
	EventData map[string]interface{} `json:"event_data,omitempty"`
	BlockHash string                 `json:"block_hash,omitempty"`
	Actor     string                 `json:"actor"`
	Timestamp string                 `json:"timestamp"`
	EventHash string                 `json:"event_hash"`
}

// eventHashPayload is exactly the field set spec §3 hashes:
// SHA256(canonical_json({sheet_id, event_type, event_data, timestamp})).
// log_id, block_hash and actor are deliberately excluded, matching the
// spec's formula verbatim.
type eventHashPayload struct {
	SheetID   string                 `json:"sheet_id"`
	EventType string                 `json:"event_type"`
	EventData map[string]interface{} `json:"event_data,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// newEntry builds and hashes an Entry. It routes through core.HashCanonical,
// the single canonical-hashing routine every content hash in this module
// uses (Design Note §9: "standardize on one canonical-JSON routine").
func newEntry(sheetID, eventType string, eventData map[string]interface{}, blockHash, actor string) (Entry, error) {
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	hash, err := core.HashCanonical(eventHashPayload{
		SheetID:   sheetID,
		EventType: eventType,
		EventData: eventData,
		Timestamp: ts,
	})
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		LogID:     uuid.NewString(),
		SheetID:   sheetID,
		EventType: eventType,
		EventData: eventData,
		BlockHash: blockHash,
		Actor:     actor,
		Timestamp: ts,
		EventHash: hash,
	}, nil
}

// recomputeHash returns what e.EventHash should be, for verify_integrity.
func recomputeHash(e Entry) (string, error) {
	return core.HashCanonical(eventHashPayload{
		SheetID:   e.SheetID,
		EventType: e.EventType,
		EventData: e.EventData,
		Timestamp: e.Timestamp,
	})
}

// verifyEntries reports whether every entry's EventHash reproduces from its
// fields (spec §4.5/§8 invariant 4). badIndex is -1 when ok is true.
func verifyEntries(entries []Entry) (ok bool, badIndex int, err error) {
	for i, e := range entries {
		want, herr := recomputeHash(e)
		if herr != nil {
			return false, i, herr
		}
		if want != e.EventHash {
			return false, i, nil
		}
	}
	return true, -1, nil
}
