package core

import (
	"context"
	"time"
)

// CreateScan ingests a freshly scanned answer sheet image: it is stored in
// the object store, hashed, and recorded as the sheet's first ledger block
// (spec §4.2 createScan, transition "" -> scanned). Idempotent on the
// scanned file's content hash (spec §4.2 Idempotency, §8 scenario 6): a
// repeat call with the same roll/exam/image returns the original sheet and
// block with no new row; a repeat call whose roll or exam diverges from the
// sheet already on file for that hash is a conflict.
func (l *Lifecycle) CreateScan(ctx context.Context, rollNumber, examID, studentName string, image []byte, actor string) (s *Sheet, blk *Block, err error) {
	start := time.Now()
	defer func() { l.metrics.observeCommand("create_scan", start, err) }()
	if err := checkTransition("", cmdCreateScan); err != nil {
		return nil, nil, err
	}
	contentHash := Sha256Hex(image)

	if existing, findErr := l.repo.FindSheetByFileHash(ctx, contentHash); findErr == nil {
		if existing.RollNumber != rollNumber || existing.ExamID != examID {
			return nil, nil, newErr(KindAlreadyExists, "a sheet already exists for this file hash with a different roll number or exam id")
		}
		existingBlock, err := l.chain.GetByHash(existing.ScanBlockHash)
		if err != nil {
			return nil, nil, err
		}
		return existing, existingBlock, nil
	} else if kind, ok := KindOf(findErr); !ok || kind != KindNotFound {
		return nil, nil, findErr
	}

	key := ObjectKey(time.Now(), contentHash, rollNumber+".jpg")
	url, err := l.objects.Put(ctx, key, image, map[string]string{"exam_id": examID, "roll_number": rollNumber})
	if err != nil {
		return nil, nil, wrapErr(KindExternalFailed, "store scanned image", err)
	}

	sheetID := newID()
	data := map[string]interface{}{
		"sheet_id":           sheetID,
		"roll_number":        rollNumber,
		"exam_id":            examID,
		"original_file_hash": contentHash,
		"object_store_url":   url,
	}
	order := []string{"sheet_id", "roll_number", "exam_id", "original_file_hash", "object_store_url"}
	blk, err = l.chain.Append(ctx, BlockScan, data, order)
	if err != nil {
		return nil, nil, err
	}

	s = &Sheet{
		SheetID:          sheetID,
		RollNumber:       rollNumber,
		ExamID:           examID,
		StudentName:      studentName,
		OriginalFileHash: contentHash,
		ObjectStoreURL:   url,
		ObjectKey:        key,
		Status:           StatusScanned,
		ScanHash:         contentHash,
		ScanBlockHash:    blk.Hash,
	}
	if err := l.repo.SaveSheet(ctx, s); err != nil {
		return nil, nil, wrapErr(KindPersistenceFailed, "save new sheet", err)
	}
	if err := l.recordEvent(ctx, sheetID, "scan_created", data, blk.Hash, actor); err != nil {
		return nil, nil, err
	}
	return s, blk, nil
}
