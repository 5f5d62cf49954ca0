package core

import (
	"context"
	"time"
)

// CommitResult publishes the final, signed result for a verified sheet
// (spec §4.2 commitResult, transition verified -> completed; §6 QR
// payload). Config.ResultVerifyBaseURL is combined with the result hash to build the
// public verification link encoded in the QR payload.
func (l *Lifecycle) CommitResult(ctx context.Context, sheetID string, actor string) (outSheet *Sheet, outBlock *Block, outResult Result, outErr error) {
	start := time.Now()
	defer func() { l.metrics.observeCommand("commit_result", start, outErr) }()
	var blk *Block
	var result Result
	var alreadyDone bool
	s, err := l.withSheet(ctx, sheetID, func(s *Sheet) error {
		if s.ResultBlockHash != "" {
			// Idempotent retry (spec §4.2 Idempotency): the result was
			// already committed for this sheet; return the existing block
			// and published result instead of re-publishing.
			existing, err := l.chain.GetByHash(s.ResultBlockHash)
			if err != nil {
				return err
			}
			blk = existing
			alreadyDone = true
			if r, err := l.repo.GetResultByRoll(ctx, s.RollNumber); err == nil {
				result = *r
			}
			return nil
		}
		if err := checkTransition(s.Status, cmdCommitResult); err != nil {
			return err
		}
		eval, err := l.repo.GetEvaluation(ctx, sheetID)
		if err != nil {
			return err
		}

		resultHash, err := HashCanonical(struct {
			SheetID    string  `json:"sheet_id"`
			VerifyHash string  `json:"verify_hash"`
			Total      float64 `json:"total"`
		}{SheetID: sheetID, VerifyHash: s.VerifyHash, Total: eval.AutomatedTotal})
		if err != nil {
			return err
		}

		data := map[string]interface{}{
			"sheet_id":    sheetID,
			"roll_number": s.RollNumber,
			"total":       eval.AutomatedTotal,
			"percentage":  eval.Percentage,
			"grade":       eval.Grade,
			"result_hash": resultHash,
		}
		order := []string{"sheet_id", "roll_number", "total", "percentage", "grade", "result_hash"}
		b, err := l.chain.Append(ctx, BlockResult, data, order)
		if err != nil {
			return err
		}
		blk = b

		result = Result{
			SheetID:    sheetID,
			RollNumber: s.RollNumber,
			Total:      eval.AutomatedTotal,
			Percentage: eval.Percentage,
			Grade:      eval.Grade,
			ResultHash: resultHash,
			BlockHash:  b.Hash,
			QR: QRPayload{
				RollNumber:     s.RollNumber,
				ResultHash:     resultHash,
				BlockchainHash: b.Hash,
				VerifyURL:      l.cfg.ResultVerifyBaseURL + resultHash,
			},
		}
		if err := l.repo.SaveResult(ctx, result); err != nil {
			return wrapErr(KindPersistenceFailed, "save result", err)
		}

		s.ResultHash = resultHash
		s.ResultBlockHash = b.Hash
		s.Status = StatusCompleted
		return nil
	})
	if err != nil {
		return nil, nil, Result{}, err
	}
	if alreadyDone {
		return s, blk, result, nil
	}
	if err := l.recordEvent(ctx, sheetID, "result_committed", map[string]interface{}{"result_hash": s.ResultHash}, blk.Hash, actor); err != nil {
		return nil, nil, Result{}, err
	}
	return s, blk, result, nil
}
