package core

import (
	"context"
	"encoding/base64"
	"time"
)

func floatField(m map[string]interface{}, key string) float64 {
	if v, ok := m[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return 0
}

func intField(m map[string]interface{}, key string) int {
	return int(floatField(m, key))
}

func boolField(m map[string]interface{}, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// decodeImageField reads an image payload out of an AI response field that
// may be raw bytes (the in-process mock) or a base64 string (the real
// aiclient, which JSON-encodes image payloads the same way it sends them).
func decodeImageField(v interface{}) []byte {
	switch val := v.(type) {
	case []byte:
		return val
	case string:
		b, err := base64.StdEncoding.DecodeString(val)
		if err != nil {
			return nil
		}
		return b
	default:
		return nil
	}
}

// AssessQuality runs damage detection over the scanned sheet and decides
// whether it is usable as-is, needs reconstruction, or must be rejected
// outright (spec §4.2 assessQuality; thresholds grounded on the original
// quality_service.py per SPEC_FULL.md §9): approval requires
// quality_score >= ReconstructionThreshold && is_recoverable, the same gate
// quality_service.py applies; anything below that threshold that isn't
// rejected outright is routed to reconstruction instead of silently
// approved. requires_human_intervention iff !is_recoverable ||
// severe_count > SevereDamageThreshold || quality_score < QualityRejectThreshold.
func (l *Lifecycle) AssessQuality(ctx context.Context, sheetID string, actor string) (outSheet *Sheet, outBlock *Block, outErr error) {
	start := time.Now()
	defer func() { l.metrics.observeCommand("assess_quality", start, outErr) }()
	var blk *Block
	var alreadyDone bool
	s, err := l.withSheet(ctx, sheetID, func(s *Sheet) error {
		if s.QualityBlockHash != "" {
			// Idempotent retry (spec §4.2 Idempotency): the quality stage
			// already ran for this sheet, regardless of which status it
			// landed on; return the block already mined instead of erroring
			// on checkTransition or re-running damage detection.
			existing, err := l.chain.GetByHash(s.QualityBlockHash)
			if err != nil {
				return err
			}
			blk = existing
			alreadyDone = true
			return nil
		}
		if err := checkTransition(s.Status, cmdAssessQuality); err != nil {
			return err
		}
		image, err := l.objects.Get(ctx, s.ObjectKey)
		if err != nil {
			return wrapErr(KindExternalFailed, "fetch scanned image", err)
		}
		res, err := l.ai.DetectDamage(ctx, image)
		if err != nil {
			return err
		}
		qualityScore := floatField(res.Output, "quality_score")
		severeCount := intField(res.Output, "severe_count")
		isRecoverable := boolField(res.Output, "is_recoverable")

		requiresHumanIntervention := !isRecoverable || severeCount > l.cfg.SevereDamageThreshold || qualityScore < l.cfg.QualityRejectThreshold
		approved := !requiresHumanIntervention && qualityScore >= l.cfg.ReconstructionThreshold && isRecoverable
		requiresReconstruction := !requiresHumanIntervention && !approved

		data := map[string]interface{}{
			"sheet_id":                    sheetID,
			"quality_score":               qualityScore,
			"severe_count":                severeCount,
			"is_recoverable":              isRecoverable,
			"requires_reconstruction":     requiresReconstruction,
			"requires_human_intervention": requiresHumanIntervention,
		}
		order := []string{"sheet_id", "quality_score", "severe_count", "is_recoverable", "requires_reconstruction", "requires_human_intervention"}

		b, err := l.chain.Append(ctx, BlockQualityAssessment, data, order)
		if err != nil {
			return err
		}
		blk = b
		s.QualityBlockHash = b.Hash

		switch {
		case requiresHumanIntervention:
			// Scenario §8: severe/numerous damage or a very low score rejects
			// the sheet outright.
			s.Status = StatusQualityRejected
		default:
			s.Status = StatusQualityAssessed
			s.NeedsReconstruction = requiresReconstruction
		}

		if requiresHumanIntervention {
			hi := newIntervention(sheetID, "quality_review", "assessQuality",
				"damage assessment flagged this sheet for human review", PriorityHigh)
			if err := l.repo.CreateIntervention(ctx, hi); err != nil {
				return wrapErr(KindPersistenceFailed, "create quality intervention", err)
			}
			if _, err := l.chain.Append(ctx, BlockQualityHumanReview, map[string]interface{}{
				"sheet_id":        sheetID,
				"intervention_id": hi.InterventionID,
			}, []string{"sheet_id", "intervention_id"}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if alreadyDone {
		return s, blk, nil
	}
	if err := l.recordEvent(ctx, sheetID, "quality_assessed", map[string]interface{}{"status": string(s.Status)}, blk.Hash, actor); err != nil {
		return nil, nil, err
	}
	return s, blk, nil
}
