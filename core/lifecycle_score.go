package core

import (
	"context"
	"time"
)

// CreateScore tallies the detected bubble answers against the exam's
// answer key and records an automated evaluation (spec §4.2 createScore,
// transition bubble_detected -> scored).
func (l *Lifecycle) CreateScore(ctx context.Context, sheetID string, actor string) (outSheet *Sheet, outBlock *Block, outEval Evaluation, outErr error) {
	start := time.Now()
	defer func() { l.metrics.observeCommand("create_score", start, outErr) }()
	var blk *Block
	var eval Evaluation
	var alreadyDone bool
	s, err := l.withSheet(ctx, sheetID, func(s *Sheet) error {
		if s.ScoreBlockHash != "" {
			// Idempotent retry (spec §4.2 Idempotency): scoring already ran
			// for this sheet; return the existing block and evaluation
			// instead of re-tallying.
			existing, err := l.chain.GetByHash(s.ScoreBlockHash)
			if err != nil {
				return err
			}
			blk = existing
			alreadyDone = true
			if e, err := l.repo.GetEvaluation(ctx, sheetID); err == nil {
				eval = *e
			}
			return nil
		}
		if err := checkTransition(s.Status, cmdCreateScore); err != nil {
			return err
		}
		key, err := l.repo.GetAnswerKey(ctx, s.ExamID)
		if err != nil {
			return err
		}
		if err := key.Validate(); err != nil {
			return err
		}
		if key.Status != AnswerKeyApproved {
			return newErr(KindInvalidState, "answer key is not approved for scoring")
		}

		answers := map[string]string{}
		for _, b := range l.chain.FindByType(BlockBubble) {
			if id, ok := b.Data["sheet_id"].(string); ok && id == sheetID {
				answers = answersFromBlockData(b.Data)
			}
		}

		total, maxMarks, details := TallyMarks(*key, answers)
		eval = NewEvaluation(sheetID, total, maxMarks, details, nil)
		if err := l.repo.SaveEvaluation(ctx, eval); err != nil {
			return wrapErr(KindPersistenceFailed, "save evaluation", err)
		}

		scoreHash, err := HashCanonical(eval)
		if err != nil {
			return err
		}
		data := map[string]interface{}{
			"sheet_id":       sheetID,
			"automated_total": eval.AutomatedTotal,
			"max_marks":      eval.MaxMarks,
			"percentage":     eval.Percentage,
			"grade":          eval.Grade,
			"score_hash":     scoreHash,
		}
		order := []string{"sheet_id", "automated_total", "max_marks", "percentage", "grade", "score_hash"}
		b, err := l.chain.Append(ctx, BlockScore, data, order)
		if err != nil {
			return err
		}
		blk = b
		s.ScoreHash = scoreHash
		s.ScoreBlockHash = b.Hash
		s.Status = StatusScored
		return nil
	})
	if err != nil {
		return nil, nil, Evaluation{}, err
	}
	if alreadyDone {
		return s, blk, eval, nil
	}
	if err := l.recordEvent(ctx, sheetID, "score_created", map[string]interface{}{"score_hash": s.ScoreHash}, blk.Hash, actor); err != nil {
		return nil, nil, Evaluation{}, err
	}
	return s, blk, eval, nil
}
