package core

import (
	"context"
	"time"
)

// CreateBubble runs bubble detection over the (possibly reconstructed)
// sheet image and records the detected answers (spec §4.2 createBubble,
// transitions quality_assessed|reconstructed_approved -> bubble_detected).
func (l *Lifecycle) CreateBubble(ctx context.Context, sheetID string, actor string) (outSheet *Sheet, outBlock *Block, outAnswers map[string]string, outErr error) {
	start := time.Now()
	defer func() { l.metrics.observeCommand("create_bubble", start, outErr) }()
	var blk *Block
	var answers map[string]string
	var alreadyDone bool
	s, err := l.withSheet(ctx, sheetID, func(s *Sheet) error {
		if s.BubbleBlockHash != "" {
			// Idempotent retry (spec §4.2 Idempotency): bubble detection
			// already ran for this sheet; return the existing block and its
			// recorded answers instead of detecting again.
			existing, err := l.chain.GetByHash(s.BubbleBlockHash)
			if err != nil {
				return err
			}
			blk = existing
			answers = answersFromBlockData(existing.Data)
			alreadyDone = true
			return nil
		}
		if err := checkTransition(s.Status, cmdCreateBubble); err != nil {
			return err
		}
		image, err := l.objects.Get(ctx, s.ObjectKey)
		if err != nil {
			return wrapErr(KindExternalFailed, "fetch sheet image", err)
		}
		res, err := l.ai.DetectBubbles(ctx, image)
		if err != nil {
			return err
		}
		answers = map[string]string{}
		if raw, ok := res.Output["answers"].(map[string]interface{}); ok {
			for q, v := range raw {
				answers[q] = coerceString(v)
			}
		} else if raw, ok := res.Output["answers"].(map[string]string); ok {
			answers = raw
		}
		hash, err := HashCanonical(answers)
		if err != nil {
			return err
		}

		data := map[string]interface{}{
			"sheet_id":    sheetID,
			"answers":     answers,
			"bubble_hash": hash,
			"confidence":  res.Confidence,
		}
		order := []string{"sheet_id", "answers", "bubble_hash", "confidence"}
		b, err := l.chain.Append(ctx, BlockBubble, data, order)
		if err != nil {
			return err
		}
		blk = b
		s.BubbleHash = hash
		s.BubbleBlockHash = b.Hash
		s.Status = StatusBubbleDetected
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if alreadyDone {
		return s, blk, answers, nil
	}
	if err := l.recordEvent(ctx, sheetID, "bubble_detected", map[string]interface{}{"bubble_hash": s.BubbleHash}, blk.Hash, actor); err != nil {
		return nil, nil, nil, err
	}
	return s, blk, answers, nil
}

// answersFromBlockData coerces a bubble block's "answers" field back into a
// map[string]string regardless of whether it was stored as
// map[string]interface{} (decoded JSON) or map[string]string (the in-process
// path), the same coercion CreateScore applies when reading bubble blocks
// off the chain.
func answersFromBlockData(data map[string]interface{}) map[string]string {
	answers := map[string]string{}
	if raw, ok := data["answers"].(map[string]interface{}); ok {
		for q, v := range raw {
			answers[q] = coerceString(v)
		}
	} else if raw, ok := data["answers"].(map[string]string); ok {
		answers = raw
	}
	return answers
}
