package core

import (
	"context"
	"time"
)

// verifyPayload is the exact data the three signers are approving: the
// sheet's automated score, bound to the sheet id so a signature cannot be
// replayed against a different sheet's result (spec §4.3).
type verifyPayload struct {
	SheetID   string `json:"sheet_id"`
	ScoreHash string `json:"score_hash"`
}

// SubmitSignature records one signer's approval toward createVerify's
// required three-signature set (spec §4.3/§4.2). It is safe to call once
// per signer type; calling again for an already-approved type returns
// already_exists. Once the third required signature lands, it mines the
// verify block and advances the sheet to verified.
func (l *Lifecycle) SubmitSignature(ctx context.Context, sheetID, attemptID string, signerType SignerType, signerKey string, actor string) (outSheet *Sheet, outBlock *Block, outErr error) {
	start := time.Now()
	defer func() { l.metrics.observeCommand("submit_signature", start, outErr) }()
	var blk *Block
	var alreadyDone bool
	s, err := l.withSheet(ctx, sheetID, func(s *Sheet) error {
		if s.Status != StatusScored {
			if s.Status == StatusVerified && s.VerifyBlockHash != "" {
				// Idempotent retry (spec §4.2 Idempotency): this attempt
				// already collected its third signature and minted the
				// verify block; a repeat submission for the same attempt
				// returns it rather than failing checkTransition.
				existing, err := l.chain.GetByHash(s.VerifyBlockHash)
				if err != nil {
					return err
				}
				blk = existing
				alreadyDone = true
				return nil
			}
			if err := checkTransition(s.Status, cmdCreateVerify); err != nil {
				return err
			}
		}
		payloadHash, err := HashCanonical(verifyPayload{SheetID: sheetID, ScoreHash: s.ScoreHash})
		if err != nil {
			return err
		}
		existing, err := l.repo.LoadSignatures(ctx, sheetID, attemptID)
		if err != nil {
			return err
		}
		set := RestoreSignatureSet(sheetID, payloadHash, l.cfg.SignerAuthority, existing)

		sig, err := set.Add(signerType, signerKey)
		if err != nil {
			l.metrics.observeSignatureRejection(signerType)
			return err
		}
		if err := l.repo.SaveSignature(ctx, sheetID, attemptID, *sig); err != nil {
			return wrapErr(KindPersistenceFailed, "save signature", err)
		}
		if !set.FullySigned() {
			return nil
		}

		proof, err := set.ApprovalProof()
		if err != nil {
			return err
		}
		data := map[string]interface{}{
			"sheet_id":       sheetID,
			"attempt_id":     attemptID,
			"score_hash":     s.ScoreHash,
			"approval_proof": proof,
		}
		order := []string{"sheet_id", "attempt_id", "score_hash", "approval_proof"}
		b, err := l.chain.Append(ctx, BlockVerify, data, order)
		if err != nil {
			return err
		}
		b.Signatures = set.Signatures()
		blk = b
		s.VerifyHash = proof
		s.VerifyBlockHash = b.Hash
		s.Status = StatusVerified
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if blk != nil && !alreadyDone {
		if err := l.recordEvent(ctx, sheetID, "verified", map[string]interface{}{"verify_hash": s.VerifyHash}, blk.Hash, actor); err != nil {
			return nil, nil, err
		}
	}
	return s, blk, nil
}
