package core

import (
	"context"
	"time"
)

// Reconstruct repairs a damaged sheet image flagged by AssessQuality (spec
// §4.2 reconstruct). Per the command table it is a pure update: no ledger
// block is produced ("(update, no new block)"). Approval gates on the
// reconstruction's own confidence: spec §8 boundary behavior — "quality <
// 0.7 keeps the sheet un-approved; >= 0.7 marks it reconstructed_approved."
// It refuses sheets that were never flagged for reconstruction.
func (l *Lifecycle) Reconstruct(ctx context.Context, sheetID string, actor string) (outSheet *Sheet, outErr error) {
	start := time.Now()
	defer func() { l.metrics.observeCommand("reconstruct", start, outErr) }()
	s, err := l.withSheet(ctx, sheetID, func(s *Sheet) error {
		if err := checkTransition(s.Status, cmdReconstruct); err != nil {
			return err
		}
		if !s.NeedsReconstruction {
			return newErr(KindInvalidState, "sheet was not flagged for reconstruction")
		}
		image, err := l.objects.Get(ctx, s.ObjectKey)
		if err != nil {
			return wrapErr(KindExternalFailed, "fetch scanned image", err)
		}
		damage, err := l.ai.DetectDamage(ctx, image)
		if err != nil {
			return err
		}
		res, err := l.ai.ReconstructSheet(ctx, image, damage)
		if err != nil {
			return err
		}
		if res.Confidence < l.cfg.ReconstructionThreshold {
			// Stays un-approved: NeedsReconstruction remains set so a caller
			// knows to retry or escalate; status and block hashes untouched.
			return nil
		}

		reconstructed := decodeImageField(res.Output["reconstructed_image"])
		contentHash := Sha256Hex(reconstructed)
		key := s.ObjectKey + ".reconstructed"
		url, err := l.objects.Put(ctx, key, reconstructed, map[string]string{"sheet_id": sheetID})
		if err != nil {
			return wrapErr(KindExternalFailed, "store reconstructed image", err)
		}

		s.ObjectStoreURL = url
		s.ObjectKey = key
		s.ScanHash = contentHash
		s.Reconstructed = true
		s.NeedsReconstruction = false
		s.Status = StatusReconstructed
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.Status == StatusReconstructed {
		if err := l.recordEvent(ctx, sheetID, "reconstructed", map[string]interface{}{"status": string(s.Status)}, "", actor); err != nil {
			return nil, err
		}
	}
	return s, nil
}
