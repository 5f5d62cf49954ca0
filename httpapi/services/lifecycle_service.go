// Package services sits between httpapi/controllers and the core lifecycle
// engine, the same thin-wrapper role the teacher's walletserver/services
// package plays around core.HDWallet.
package services

import (
	"context"

	"omrledger/core"
)

// LifecycleService wraps core.Lifecycle and the chain it runs on, giving
// controllers a single dependency instead of reaching into core directly.
type LifecycleService struct {
	Chain *core.Chain
	Repo  core.Repository
	Life  *core.Lifecycle
}

func New(chain *core.Chain, repo core.Repository, life *core.Lifecycle) *LifecycleService {
	return &LifecycleService{Chain: chain, Repo: repo, Life: life}
}

func (s *LifecycleService) CreateScan(ctx context.Context, rollNumber, examID, studentName string, image []byte, actor string) (*core.Sheet, *core.Block, error) {
	return s.Life.CreateScan(ctx, rollNumber, examID, studentName, image, actor)
}

func (s *LifecycleService) AssessQuality(ctx context.Context, sheetID, actor string) (*core.Sheet, *core.Block, error) {
	return s.Life.AssessQuality(ctx, sheetID, actor)
}

func (s *LifecycleService) Reconstruct(ctx context.Context, sheetID, actor string) (*core.Sheet, error) {
	return s.Life.Reconstruct(ctx, sheetID, actor)
}

func (s *LifecycleService) CreateBubble(ctx context.Context, sheetID, actor string) (*core.Sheet, *core.Block, map[string]string, error) {
	return s.Life.CreateBubble(ctx, sheetID, actor)
}

func (s *LifecycleService) CreateScore(ctx context.Context, sheetID, actor string) (*core.Sheet, *core.Block, core.Evaluation, error) {
	return s.Life.CreateScore(ctx, sheetID, actor)
}

func (s *LifecycleService) SubmitSignature(ctx context.Context, sheetID, attemptID string, signerType core.SignerType, signerKey, actor string) (*core.Sheet, *core.Block, error) {
	return s.Life.SubmitSignature(ctx, sheetID, attemptID, signerType, signerKey, actor)
}

func (s *LifecycleService) CommitResult(ctx context.Context, sheetID, actor string) (*core.Sheet, *core.Block, core.Result, error) {
	return s.Life.CommitResult(ctx, sheetID, actor)
}

func (s *LifecycleService) RequestRecheck(ctx context.Context, sheetID string, objection map[string]interface{}, manualTotal *float64, actor string) (*core.Block, error) {
	return s.Life.RequestRecheck(ctx, sheetID, objection, manualTotal, actor)
}

func (s *LifecycleService) UploadQuestionPaper(ctx context.Context, examID string, questions map[string]core.AnswerKeyQuestion, actor string) (*core.Block, error) {
	return s.Life.UploadQuestionPaper(ctx, examID, questions, actor)
}

func (s *LifecycleService) VerifyAnswerKey(ctx context.Context, examID, actor string) (*core.Block, error) {
	return s.Life.VerifyAnswerKey(ctx, examID, actor)
}

func (s *LifecycleService) ApproveAnswerKey(ctx context.Context, examID, actor string) (*core.Block, error) {
	return s.Life.ApproveAnswerKey(ctx, examID, actor)
}

func (s *LifecycleService) ResolveIntervention(ctx context.Context, interventionID, resolution, actor string) error {
	return s.Life.ResolveIntervention(ctx, interventionID, resolution, actor)
}

func (s *LifecycleService) PendingInterventions(ctx context.Context, status string) ([]core.HumanIntervention, error) {
	return s.Life.PendingInterventions(ctx, status)
}

func (s *LifecycleService) Result(ctx context.Context, rollNumber string) (*core.Result, error) {
	return s.Repo.GetResultByRoll(ctx, rollNumber)
}

func (s *LifecycleService) Stats() core.Stats {
	return s.Chain.Stats()
}

func (s *LifecycleService) Validate() core.ValidateResult {
	return s.Chain.Validate()
}

func (s *LifecycleService) Block(index uint64) (*core.Block, error) {
	return s.Chain.Get(index)
}
