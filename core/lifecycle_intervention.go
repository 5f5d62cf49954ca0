package core

import (
	"context"
	"time"
)

// ResolveIntervention closes a pending human intervention with the
// reviewer's resolution note. It mines the closed set's `human_intervention`
// block type (spec §3 Block invariant), the ledger record of the reviewer's
// decision, then mirrors it into the audit log.
func (l *Lifecycle) ResolveIntervention(ctx context.Context, interventionID, resolution, actor string) (outErr error) {
	start := time.Now()
	defer func() { l.metrics.observeCommand("resolve_intervention", start, outErr) }()

	hi, err := l.repo.ResolveIntervention(ctx, interventionID, resolution)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"intervention_id":   interventionID,
		"sheet_id":          hi.SheetID,
		"intervention_type": hi.Type,
		"resolution":        resolution,
	}
	order := []string{"intervention_id", "sheet_id", "intervention_type", "resolution"}
	blk, err := l.chain.Append(ctx, BlockHumanIntervention, data, order)
	if err != nil {
		return err
	}
	return l.recordEvent(ctx, hi.SheetID, "intervention_resolved", data, blk.Hash, actor)
}

// PendingInterventions lists open interventions, optionally filtered by
// status (spec §3: human review queue).
func (l *Lifecycle) PendingInterventions(ctx context.Context, status string) ([]HumanIntervention, error) {
	return l.repo.ListInterventions(ctx, status)
}
