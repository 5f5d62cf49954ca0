package store

import (
	"context"
	"testing"

	"omrledger/core"
)

func TestMemoryStoreSheetRoundTrip(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	s := &core.Sheet{SheetID: "s1", RollNumber: "r1", Status: core.StatusScanned}
	if err := m.SaveSheet(ctx, s); err != nil {
		t.Fatalf("save sheet: %v", err)
	}
	got, err := m.GetSheet(ctx, "s1")
	if err != nil {
		t.Fatalf("get sheet: %v", err)
	}
	if got.RollNumber != "r1" {
		t.Fatalf("expected roll number r1, got %s", got.RollNumber)
	}
	// Mutating the returned copy must not affect the stored record.
	got.RollNumber = "mutated"
	again, err := m.GetSheet(ctx, "s1")
	if err != nil {
		t.Fatalf("get sheet again: %v", err)
	}
	if again.RollNumber != "r1" {
		t.Fatalf("expected stored sheet to be unaffected by mutation of a prior copy, got %s", again.RollNumber)
	}
}

func TestMemoryStoreGetSheetNotFound(t *testing.T) {
	m := NewMemoryStore()
	if _, err := m.GetSheet(context.Background(), "missing"); err == nil {
		t.Fatalf("expected not_found error")
	} else if kind, ok := core.KindOf(err); !ok || kind != core.KindNotFound {
		t.Fatalf("expected not_found kind, got %v", err)
	}
}

func TestMemoryStoreBlockAppendOrderPreserved(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		b := &core.Block{Index: uint64(i), Hash: "h" + string(rune('0'+i))}
		if err := m.SaveBlock(ctx, b); err != nil {
			t.Fatalf("save block %d: %v", i, err)
		}
	}
	blocks, err := m.LoadBlocks(ctx)
	if err != nil {
		t.Fatalf("load blocks: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	for i, b := range blocks {
		if b.Index != uint64(i) {
			t.Fatalf("expected block %d to have index %d, got %d", i, i, b.Index)
		}
	}
}

func TestMemoryStoreEventsBySheetOrderPreserved(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	m.AppendEvent(ctx, core.Event{EventID: "e1", SheetID: "s1", EventType: "scan_created"})
	m.AppendEvent(ctx, core.Event{EventID: "e2", SheetID: "s1", EventType: "quality_assessed"})
	m.AppendEvent(ctx, core.Event{EventID: "e3", SheetID: "s2", EventType: "scan_created"})

	events, err := m.EventsBySheet(ctx, "s1")
	if err != nil {
		t.Fatalf("events by sheet: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for s1, got %d", len(events))
	}
	if events[0].EventType != "scan_created" || events[1].EventType != "quality_assessed" {
		t.Fatalf("expected events in append order, got %+v", events)
	}
}

func TestMemoryStoreSignatureUpsertBySignerType(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	sig := core.Signature{SignerType: core.SignerAIVerifier, SignatureHash: "h1"}
	if err := m.SaveSignature(ctx, "s1", "attempt-1", sig); err != nil {
		t.Fatalf("save signature: %v", err)
	}
	sig.SignatureHash = "h2"
	if err := m.SaveSignature(ctx, "s1", "attempt-1", sig); err != nil {
		t.Fatalf("save signature (update): %v", err)
	}
	sigs, err := m.LoadSignatures(ctx, "s1", "attempt-1")
	if err != nil {
		t.Fatalf("load signatures: %v", err)
	}
	if len(sigs) != 1 {
		t.Fatalf("expected a single signature per signer type within an attempt, got %d", len(sigs))
	}
	if sigs[0].SignatureHash != "h2" {
		t.Fatalf("expected the signature to have been updated to h2, got %s", sigs[0].SignatureHash)
	}
}

func TestMemoryStoreInterventionLifecycle(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	hi := core.HumanIntervention{InterventionID: "hi1", SheetID: "s1", Status: core.InterventionPending}
	if err := m.CreateIntervention(ctx, hi); err != nil {
		t.Fatalf("create intervention: %v", err)
	}
	pending, err := m.ListInterventions(ctx, "pending")
	if err != nil {
		t.Fatalf("list interventions: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending intervention, got %d", len(pending))
	}

	if _, err := m.ResolveIntervention(ctx, "hi1", "false positive"); err != nil {
		t.Fatalf("resolve intervention: %v", err)
	}
	pending, err = m.ListInterventions(ctx, "pending")
	if err != nil {
		t.Fatalf("list interventions after resolve: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected 0 pending interventions after resolving, got %d", len(pending))
	}
	resolved, err := m.ListInterventions(ctx, "resolved")
	if err != nil {
		t.Fatalf("list resolved: %v", err)
	}
	if len(resolved) != 1 || resolved[0].Resolution != "false positive" {
		t.Fatalf("expected 1 resolved intervention with resolution recorded, got %+v", resolved)
	}
}

func TestMemoryStoreResultByRollNumber(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	if err := m.SaveResult(ctx, core.Result{SheetID: "s1", RollNumber: "r1", Grade: "A+"}); err != nil {
		t.Fatalf("save result: %v", err)
	}
	got, err := m.GetResultByRoll(ctx, "r1")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if got.Grade != "A+" {
		t.Fatalf("expected grade A+, got %s", got.Grade)
	}
	if _, err := m.GetResultByRoll(ctx, "missing"); err == nil {
		t.Fatalf("expected not_found for an unknown roll number")
	}
}
