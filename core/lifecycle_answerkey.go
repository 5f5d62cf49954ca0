package core

import (
	"context"
	"time"
)

// UploadQuestionPaper records the question paper and its answer key for an
// exam (spec §3 AnswerKey, supplemented from the original answer-key
// upload flow per SPEC_FULL.md §9). The key starts pending_verification
// and is not usable by CreateScore until VerifyAnswerKey and
// ApproveAnswerKey both succeed.
func (l *Lifecycle) UploadQuestionPaper(ctx context.Context, examID string, questions map[string]AnswerKeyQuestion, actor string) (outBlock *Block, outErr error) {
	start := time.Now()
	defer func() { l.metrics.observeCommand("upload_question_paper", start, outErr) }()
	mu := l.locks.lockFor(examID)
	mu.Lock()
	defer mu.Unlock()

	key := AnswerKey{ExamID: examID, Questions: questions, Status: AnswerKeyPendingVerification}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := l.repo.SaveAnswerKey(ctx, key); err != nil {
		return nil, wrapErr(KindPersistenceFailed, "save answer key", err)
	}
	hash, err := HashCanonical(key)
	if err != nil {
		return nil, err
	}
	data := map[string]interface{}{"exam_id": examID, "answer_key_hash": hash}
	blk, err := l.chain.Append(ctx, BlockQuestionPaperUpload, data, []string{"exam_id", "answer_key_hash"})
	if err != nil {
		return nil, err
	}
	if err := l.recordEvent(ctx, examID, "question_paper_uploaded", data, blk.Hash, actor); err != nil {
		return nil, err
	}
	return blk, nil
}

// VerifyAnswerKey runs the AI collaborator's answer verification over the
// uploaded key, flagging it for human review on low-confidence output
// instead of auto-verifying (spec §4.6: AI failures/low confidence must
// surface, never be silently accepted).
func (l *Lifecycle) VerifyAnswerKey(ctx context.Context, examID string, actor string) (outBlock *Block, outErr error) {
	start := time.Now()
	defer func() { l.metrics.observeCommand("verify_answer_key", start, outErr) }()
	mu := l.locks.lockFor(examID)
	mu.Lock()
	defer mu.Unlock()

	key, err := l.repo.GetAnswerKey(ctx, examID)
	if err != nil {
		return nil, err
	}
	if key.Status != AnswerKeyPendingVerification {
		return nil, newErr(KindInvalidState, "answer key is not pending verification")
	}

	questionMap := make(map[string]interface{}, len(key.Questions))
	for id, q := range key.Questions {
		questionMap[id] = map[string]interface{}{"answer": q.Answer, "marks": q.Marks}
	}
	res, err := l.ai.VerifyAnswer(ctx, questionMap, nil)
	if err != nil {
		return nil, err
	}

	if res.Confidence <= 0.7 {
		key.Status = AnswerKeyFlagged
		hi := newIntervention(examID, "answer_key_review", "verifyAnswerKey",
			"answer key verification confidence too low for auto-approval", PriorityMedium)
		if err := l.repo.CreateIntervention(ctx, hi); err != nil {
			return nil, wrapErr(KindPersistenceFailed, "create answer key intervention", err)
		}
	} else {
		key.Status = AnswerKeyVerified
	}
	if err := l.repo.SaveAnswerKey(ctx, *key); err != nil {
		return nil, wrapErr(KindPersistenceFailed, "save verified answer key", err)
	}

	data := map[string]interface{}{"exam_id": examID, "status": string(key.Status), "confidence": res.Confidence}
	blk, err := l.chain.Append(ctx, BlockAnswerKeyVerified, data, []string{"exam_id", "status", "confidence"})
	if err != nil {
		return nil, err
	}
	if err := l.recordEvent(ctx, examID, "answer_key_verified", data, blk.Hash, actor); err != nil {
		return nil, err
	}
	return blk, nil
}

// ApproveAnswerKey is the admin-controller's final sign-off, the gate that
// lets CreateScore use the key (spec §9 supplement).
func (l *Lifecycle) ApproveAnswerKey(ctx context.Context, examID string, actor string) (outBlock *Block, outErr error) {
	start := time.Now()
	defer func() { l.metrics.observeCommand("approve_answer_key", start, outErr) }()
	mu := l.locks.lockFor(examID)
	mu.Lock()
	defer mu.Unlock()

	key, err := l.repo.GetAnswerKey(ctx, examID)
	if err != nil {
		return nil, err
	}
	if key.Status != AnswerKeyVerified {
		return nil, newErr(KindInvalidState, "answer key must be verified before approval")
	}
	key.Status = AnswerKeyApproved
	if err := l.repo.SaveAnswerKey(ctx, *key); err != nil {
		return nil, wrapErr(KindPersistenceFailed, "save approved answer key", err)
	}

	data := map[string]interface{}{"exam_id": examID}
	blk, err := l.chain.Append(ctx, BlockAnswerKeyApproved, data, []string{"exam_id"})
	if err != nil {
		return nil, err
	}
	if err := l.recordEvent(ctx, examID, "answer_key_approved", data, blk.Hash, actor); err != nil {
		return nil, err
	}
	return blk, nil
}
