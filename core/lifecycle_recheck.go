package core

import (
	"context"
	"time"
)

// RequestRecheck records a post-result objection and its AI-assisted
// evaluation (spec §4.2 requestRecheck, §9 Open Question i: appends a
// recheck block without creating a new sheet row or leaving the completed
// status). A manual total supplied by the reviewer updates the persisted
// Evaluation's discrepancy/requires_investigation fields.
func (l *Lifecycle) RequestRecheck(ctx context.Context, sheetID string, objection map[string]interface{}, manualTotal *float64, actor string) (outBlock *Block, outErr error) {
	start := time.Now()
	defer func() { l.metrics.observeCommand("request_recheck", start, outErr) }()
	var blk *Block
	_, err := l.withSheet(ctx, sheetID, func(s *Sheet) error {
		if err := checkTransition(s.Status, cmdRequestRecheck); err != nil {
			return err
		}
		res, err := l.ai.EvaluateObjection(ctx, objection)
		if err != nil {
			return err
		}

		data := map[string]interface{}{
			"sheet_id":   sheetID,
			"objection":  objection,
			"ai_output":  res.Output,
			"confidence": res.Confidence,
		}
		order := []string{"sheet_id", "objection", "ai_output", "confidence"}
		b, err := l.chain.Append(ctx, BlockRecheck, data, order)
		if err != nil {
			return err
		}
		blk = b

		if manualTotal != nil {
			eval, err := l.repo.GetEvaluation(ctx, sheetID)
			if err != nil {
				return err
			}
			updated := NewEvaluation(sheetID, eval.AutomatedTotal, eval.MaxMarks, eval.QuestionResults, manualTotal)
			if err := l.repo.SaveEvaluation(ctx, updated); err != nil {
				return wrapErr(KindPersistenceFailed, "save rechecked evaluation", err)
			}

			evalData := map[string]interface{}{
				"sheet_id":               sheetID,
				"automated_total":        updated.AutomatedTotal,
				"manual_total":           *manualTotal,
				"marks_match":            updated.MarksMatch,
				"discrepancy":            updated.Discrepancy,
				"requires_investigation": updated.RequiresInvestigation,
			}
			evalOrder := []string{"sheet_id", "automated_total", "manual_total", "marks_match", "discrepancy", "requires_investigation"}
			if _, err := l.chain.Append(ctx, BlockEvaluation, evalData, evalOrder); err != nil {
				return err
			}

			if updated.RequiresInvestigation {
				// spec §8 scenario 4: a marks_mismatch intervention at high
				// priority whenever automated and manual totals disagree
				// beyond markTolerance.
				hi := newIntervention(sheetID, "marks_mismatch", "requestRecheck",
					"automated and manual totals disagree beyond tolerance", PriorityHigh)
				if err := l.repo.CreateIntervention(ctx, hi); err != nil {
					return wrapErr(KindPersistenceFailed, "create recheck intervention", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := l.recordEvent(ctx, sheetID, "recheck_requested", map[string]interface{}{"block_hash": blk.Hash}, blk.Hash, actor); err != nil {
		return nil, err
	}
	return blk, nil
}
