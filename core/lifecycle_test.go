package core_test

import (
	"context"
	"testing"

	. "omrledger/core"
	"omrledger/store"
)

// stubAI is a fully-controllable AIProvider for lifecycle tests: each method
// returns whatever the test configured, so a scenario can drive the exact
// branch of AssessQuality/Reconstruct/CreateBubble it wants to exercise.
type stubAI struct {
	bubbles          map[string]string
	damageOutput     map[string]interface{}
	damageConfidence float64
	reconstructOut   map[string]interface{}
	reconstructConf  float64
	verifyConfidence float64
}

func (s *stubAI) SolveQuestion(ctx context.Context, q map[string]interface{}) (AIResult, error) {
	return AIResult{Output: map[string]interface{}{}, Confidence: 0.9}, nil
}

func (s *stubAI) VerifyAnswer(ctx context.Context, question, candidate map[string]interface{}) (AIResult, error) {
	return AIResult{Output: map[string]interface{}{"verified": true}, Confidence: s.verifyConfidence}, nil
}

func (s *stubAI) EvaluateObjection(ctx context.Context, objection map[string]interface{}) (AIResult, error) {
	return AIResult{Output: map[string]interface{}{}, Confidence: 0.9}, nil
}

func (s *stubAI) DetectBubbles(ctx context.Context, sheetImage []byte) (AIResult, error) {
	return AIResult{Output: map[string]interface{}{"answers": s.bubbles}, Confidence: 0.9}, nil
}

func (s *stubAI) DetectDamage(ctx context.Context, sheetImage []byte) (AIResult, error) {
	return AIResult{Output: s.damageOutput, Confidence: s.damageConfidence}, nil
}

func (s *stubAI) ReconstructSheet(ctx context.Context, sheetImage []byte, damage AIResult) (AIResult, error) {
	return AIResult{Output: s.reconstructOut, Confidence: s.reconstructConf}, nil
}

var _ AIProvider = (*stubAI)(nil)

func testAuthorityMap() SignerAuthority {
	return SignerAuthority{
		SignerAIVerifier:      "ai-key",
		SignerHumanVerifier:   "human-key",
		SignerAdminController: "admin-key",
	}
}

func newTestLifecycle(t *testing.T, ai AIProvider) (*Lifecycle, Repository) {
	t.Helper()
	chain, err := NewChain(ChainConfig{Difficulty: 1, MiningMaxAttempt: 1_000_000})
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	repo := store.NewMemoryStore()
	objects, err := store.NewFSObjectStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSObjectStore: %v", err)
	}
	cfg := DefaultConfig()
	cfg.SignerAuthority = testAuthorityMap()
	life := NewLifecycle(chain, repo, nil, ai, objects, cfg, 0)
	return life, repo
}

func approveAnswerKey(t *testing.T, life *Lifecycle, examID string, questions map[string]AnswerKeyQuestion) {
	t.Helper()
	ctx := context.Background()
	if _, err := life.UploadQuestionPaper(ctx, examID, questions, "admin"); err != nil {
		t.Fatalf("upload question paper: %v", err)
	}
	if _, err := life.VerifyAnswerKey(ctx, examID, "admin"); err != nil {
		t.Fatalf("verify answer key: %v", err)
	}
	if _, err := life.ApproveAnswerKey(ctx, examID, "admin"); err != nil {
		t.Fatalf("approve answer key: %v", err)
	}
}

func signAllThree(t *testing.T, life *Lifecycle, sheetID, attemptID string) *Sheet {
	t.Helper()
	ctx := context.Background()
	creds := []struct {
		typ SignerType
		key string
	}{
		{SignerAIVerifier, "ai-key"},
		{SignerHumanVerifier, "human-key"},
		{SignerAdminController, "admin-key"},
	}
	var last *Sheet
	for _, c := range creds {
		s, _, err := life.SubmitSignature(ctx, sheetID, attemptID, c.typ, c.key, "signer")
		if err != nil {
			t.Fatalf("submit signature %s: %v", c.typ, err)
		}
		last = s
	}
	return last
}

// TestHappyPathEndToEnd exercises the full command sequence spec §4.2 names,
// from a fresh scan through a committed, verified result.
func TestHappyPathEndToEnd(t *testing.T) {
	ctx := context.Background()
	ai := &stubAI{
		bubbles:          map[string]string{"Q1": "A", "Q2": "B", "Q3": "C"},
		damageOutput:     map[string]interface{}{"quality_score": 0.95, "severe_count": 0, "is_recoverable": true, "needs_reconstruction": false},
		damageConfidence: 0.9,
		verifyConfidence: 0.95,
	}
	life, _ := newTestLifecycle(t, ai)

	approveAnswerKey(t, life, "exam-1", map[string]AnswerKeyQuestion{
		"Q1": {Answer: "A", Marks: 2},
		"Q2": {Answer: "B", Marks: 3},
		"Q3": {Answer: "C", Marks: 5},
	})

	s, _, err := life.CreateScan(ctx, "roll-1", "exam-1", "Student One", []byte("image-bytes"), "scanner")
	if err != nil {
		t.Fatalf("create scan: %v", err)
	}
	if s.Status != StatusScanned {
		t.Fatalf("expected status scanned, got %s", s.Status)
	}

	s, _, err = life.AssessQuality(ctx, s.SheetID, "assessor")
	if err != nil {
		t.Fatalf("assess quality: %v", err)
	}
	if s.Status != StatusQualityAssessed {
		t.Fatalf("expected status quality_assessed, got %s", s.Status)
	}

	s, _, answers, err := life.CreateBubble(ctx, s.SheetID, "detector")
	if err != nil {
		t.Fatalf("create bubble: %v", err)
	}
	if len(answers) != 3 {
		t.Fatalf("expected 3 detected answers, got %d", len(answers))
	}
	if s.Status != StatusBubbleDetected {
		t.Fatalf("expected status bubble_detected, got %s", s.Status)
	}

	s, _, eval, err := life.CreateScore(ctx, s.SheetID, "scorer")
	if err != nil {
		t.Fatalf("create score: %v", err)
	}
	if eval.AutomatedTotal != 10 {
		t.Fatalf("expected automated total 10, got %v", eval.AutomatedTotal)
	}
	if s.Status != StatusScored {
		t.Fatalf("expected status scored, got %s", s.Status)
	}

	s = signAllThree(t, life, s.SheetID, "attempt-1")
	if s.Status != StatusVerified {
		t.Fatalf("expected status verified, got %s", s.Status)
	}

	s, _, result, err := life.CommitResult(ctx, s.SheetID, "registrar")
	if err != nil {
		t.Fatalf("commit result: %v", err)
	}
	if s.Status != StatusCompleted {
		t.Fatalf("expected status completed, got %s", s.Status)
	}
	if result.Grade != "A+" {
		t.Fatalf("expected grade A+ for a perfect score, got %s", result.Grade)
	}
	if result.QR.ResultHash != result.ResultHash {
		t.Fatalf("expected QR payload to carry the result hash")
	}
}

// TestAssessQualityRejectsSevereDamage is spec §8 scenario 3: a low quality
// score with many severe defects rejects the sheet outright, even when the
// AI reports it as recoverable.
func TestAssessQualityRejectsSevereDamage(t *testing.T) {
	ctx := context.Background()
	ai := &stubAI{
		damageOutput: map[string]interface{}{
			"quality_score": 0.42, "severe_count": 5, "is_recoverable": true, "needs_reconstruction": true,
		},
		damageConfidence: 0.9,
	}
	life, _ := newTestLifecycle(t, ai)
	s, _, err := life.CreateScan(ctx, "roll-2", "exam-2", "Student Two", []byte("img"), "scanner")
	if err != nil {
		t.Fatalf("create scan: %v", err)
	}
	s, _, err = life.AssessQuality(ctx, s.SheetID, "assessor")
	if err != nil {
		t.Fatalf("assess quality: %v", err)
	}
	if s.Status != StatusQualityRejected {
		t.Fatalf("expected status quality_rejected for severe damage, got %s", s.Status)
	}
}

// TestReconstructGatesOnConfidence is spec §8's boundary behavior: a
// reconstruction confidence below ReconstructionThreshold (0.7) must leave
// the sheet un-approved, and at/above it must approve.
func TestReconstructGatesOnConfidence(t *testing.T) {
	ctx := context.Background()
	lowConfAI := &stubAI{
		damageOutput:     map[string]interface{}{"quality_score": 0.5, "severe_count": 1, "is_recoverable": true, "needs_reconstruction": true},
		damageConfidence: 0.9,
		reconstructOut:   map[string]interface{}{"reconstructed_image": []byte("fixed")},
		reconstructConf:  0.5,
	}
	life, _ := newTestLifecycle(t, lowConfAI)
	s, _, err := life.CreateScan(ctx, "roll-3", "exam-3", "Student Three", []byte("img"), "scanner")
	if err != nil {
		t.Fatalf("create scan: %v", err)
	}
	s, _, err = life.AssessQuality(ctx, s.SheetID, "assessor")
	if err != nil {
		t.Fatalf("assess quality: %v", err)
	}
	if !s.NeedsReconstruction {
		t.Fatalf("expected needs_reconstruction true")
	}

	s, err = life.Reconstruct(ctx, s.SheetID, "reconstructor")
	if err != nil {
		t.Fatalf("reconstruct (low confidence): %v", err)
	}
	if s.Status != StatusQualityAssessed {
		t.Fatalf("expected status to remain quality_assessed when confidence < threshold, got %s", s.Status)
	}
	if !s.NeedsReconstruction {
		t.Fatalf("expected needs_reconstruction to remain true after a low-confidence reconstruction")
	}

	lowConfAI.reconstructConf = 0.9
	s, err = life.Reconstruct(ctx, s.SheetID, "reconstructor")
	if err != nil {
		t.Fatalf("reconstruct (high confidence): %v", err)
	}
	if s.Status != StatusReconstructed {
		t.Fatalf("expected status reconstructed_approved once confidence >= threshold, got %s", s.Status)
	}
	if s.NeedsReconstruction {
		t.Fatalf("expected needs_reconstruction cleared after approval")
	}
}

// TestReconstructProducesNoLedgerBlock asserts spec §4.2's command table
// entry for reconstruct: "(update, no new block)".
func TestReconstructProducesNoLedgerBlock(t *testing.T) {
	ctx := context.Background()
	ai := &stubAI{
		damageOutput:     map[string]interface{}{"quality_score": 0.5, "severe_count": 1, "is_recoverable": true, "needs_reconstruction": true},
		damageConfidence: 0.9,
		reconstructOut:   map[string]interface{}{"reconstructed_image": []byte("fixed")},
		reconstructConf:  0.9,
	}
	chain, err := NewChain(ChainConfig{Difficulty: 1, MiningMaxAttempt: 1_000_000})
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	repo := store.NewMemoryStore()
	objects, err := store.NewFSObjectStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSObjectStore: %v", err)
	}
	cfg := DefaultConfig()
	cfg.SignerAuthority = testAuthorityMap()
	life := NewLifecycle(chain, repo, nil, ai, objects, cfg, 0)

	s, _, err := life.CreateScan(ctx, "roll-4", "exam-4", "Student Four", []byte("img"), "scanner")
	if err != nil {
		t.Fatalf("create scan: %v", err)
	}
	s, _, err = life.AssessQuality(ctx, s.SheetID, "assessor")
	if err != nil {
		t.Fatalf("assess quality: %v", err)
	}
	before := chain.Len()
	if _, err := life.Reconstruct(ctx, s.SheetID, "reconstructor"); err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if chain.Len() != before {
		t.Fatalf("expected reconstruct to append no ledger block, chain length went from %d to %d", before, chain.Len())
	}
}

// TestCommitResultRefusesUnverifiedSheet verifies commitResult
// refuses a sheet that is not yet verified (spec §4.2 transition table).
func TestCommitResultRefusesUnverifiedSheet(t *testing.T) {
	ctx := context.Background()
	ai := &stubAI{damageOutput: map[string]interface{}{"quality_score": 0.9, "is_recoverable": true}, damageConfidence: 0.9}
	life, _ := newTestLifecycle(t, ai)
	s, _, err := life.CreateScan(ctx, "roll-5", "exam-5", "Student Five", []byte("img"), "scanner")
	if err != nil {
		t.Fatalf("create scan: %v", err)
	}
	if _, _, _, err := life.CommitResult(ctx, s.SheetID, "registrar"); err == nil {
		t.Fatalf("expected commitResult to refuse a scanned (not verified) sheet")
	} else if kind, ok := KindOf(err); !ok || kind != KindInvalidState {
		t.Fatalf("expected invalid_state, got %v", err)
	}
}

// TestSubmitSignaturePartialDoesNotMineBlock ensures a createVerify block is
// mined only once the third required signature lands (spec §4.3).
func TestSubmitSignaturePartialDoesNotMineBlock(t *testing.T) {
	ctx := context.Background()
	ai := &stubAI{
		bubbles:          map[string]string{"Q1": "A"},
		damageOutput:     map[string]interface{}{"quality_score": 0.95, "is_recoverable": true},
		damageConfidence: 0.9,
		verifyConfidence: 0.95,
	}
	life, _ := newTestLifecycle(t, ai)
	approveAnswerKey(t, life, "exam-6", map[string]AnswerKeyQuestion{"Q1": {Answer: "A", Marks: 10}})
	s, _, err := life.CreateScan(ctx, "roll-6", "exam-6", "Student Six", []byte("img"), "scanner")
	if err != nil {
		t.Fatalf("create scan: %v", err)
	}
	s, _, err = life.AssessQuality(ctx, s.SheetID, "assessor")
	if err != nil {
		t.Fatalf("assess quality: %v", err)
	}
	s, _, _, err = life.CreateBubble(ctx, s.SheetID, "detector")
	if err != nil {
		t.Fatalf("create bubble: %v", err)
	}
	s, _, _, err = life.CreateScore(ctx, s.SheetID, "scorer")
	if err != nil {
		t.Fatalf("create score: %v", err)
	}

	s, blk, err := life.SubmitSignature(ctx, s.SheetID, "attempt-1", SignerAIVerifier, "ai-key", "signer")
	if err != nil {
		t.Fatalf("submit first signature: %v", err)
	}
	if blk != nil {
		t.Fatalf("expected no block mined before all 3 signatures are collected")
	}
	if s.Status != StatusScored {
		t.Fatalf("expected status to remain scored with only 1 of 3 signatures, got %s", s.Status)
	}
}

// TestPendingInterventionsListsCreatedEntries covers the human-review queue
// populated by AssessQuality when intervention conditions are met.
func TestPendingInterventionsListsCreatedEntries(t *testing.T) {
	ctx := context.Background()
	ai := &stubAI{
		damageOutput:     map[string]interface{}{"quality_score": 0.3, "severe_count": 5, "is_recoverable": false},
		damageConfidence: 0.9,
	}
	life, _ := newTestLifecycle(t, ai)
	s, _, err := life.CreateScan(ctx, "roll-7", "exam-7", "Student Seven", []byte("img"), "scanner")
	if err != nil {
		t.Fatalf("create scan: %v", err)
	}
	if _, _, err := life.AssessQuality(ctx, s.SheetID, "assessor"); err != nil {
		t.Fatalf("assess quality: %v", err)
	}
	pending, err := life.PendingInterventions(ctx, "pending")
	if err != nil {
		t.Fatalf("pending interventions: %v", err)
	}
	if len(pending) == 0 {
		t.Fatalf("expected at least one pending intervention for a non-recoverable sheet")
	}
}

// TestRequestRecheckRaisesMarksMismatchIntervention is spec §8 scenario 4: a
// manual recheck total that disagrees with the automated total beyond
// tolerance raises a high-priority marks_mismatch intervention, and the
// recheck itself only appends a block (completed status is unchanged).
func TestRequestRecheckRaisesMarksMismatchIntervention(t *testing.T) {
	ctx := context.Background()
	ai := &stubAI{
		bubbles:          map[string]string{"Q1": "A"},
		damageOutput:     map[string]interface{}{"quality_score": 0.95, "is_recoverable": true},
		damageConfidence: 0.9,
		verifyConfidence: 0.95,
	}
	life, repo := newTestLifecycle(t, ai)
	approveAnswerKey(t, life, "exam-8", map[string]AnswerKeyQuestion{"Q1": {Answer: "A", Marks: 10}})

	s, _, err := life.CreateScan(ctx, "roll-8", "exam-8", "Student Eight", []byte("img"), "scanner")
	if err != nil {
		t.Fatalf("create scan: %v", err)
	}
	s, _, err = life.AssessQuality(ctx, s.SheetID, "assessor")
	if err != nil {
		t.Fatalf("assess quality: %v", err)
	}
	s, _, _, err = life.CreateBubble(ctx, s.SheetID, "detector")
	if err != nil {
		t.Fatalf("create bubble: %v", err)
	}
	s, _, _, err = life.CreateScore(ctx, s.SheetID, "scorer")
	if err != nil {
		t.Fatalf("create score: %v", err)
	}
	s = signAllThree(t, life, s.SheetID, "attempt-1")
	s, _, _, err = life.CommitResult(ctx, s.SheetID, "registrar")
	if err != nil {
		t.Fatalf("commit result: %v", err)
	}
	if s.Status != StatusCompleted {
		t.Fatalf("expected status completed before requesting a recheck, got %s", s.Status)
	}

	manualTotal := 2.0 // automated total is 10; well beyond markTolerance
	blk, err := life.RequestRecheck(ctx, s.SheetID, map[string]interface{}{"reason": "student objection"}, &manualTotal, "reviewer")
	if err != nil {
		t.Fatalf("request recheck: %v", err)
	}
	if blk.BlockType != BlockRecheck {
		t.Fatalf("expected a recheck block, got %s", blk.BlockType)
	}

	after, err := repo.GetSheet(ctx, s.SheetID)
	if err != nil {
		t.Fatalf("get sheet: %v", err)
	}
	if after.Status != StatusCompleted {
		t.Fatalf("expected status to remain completed after a recheck, got %s", after.Status)
	}

	pending, err := life.PendingInterventions(ctx, "pending")
	if err != nil {
		t.Fatalf("pending interventions: %v", err)
	}
	found := false
	for _, hi := range pending {
		if hi.Type == "marks_mismatch" && hi.Priority == PriorityHigh {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a high-priority marks_mismatch intervention among %+v", pending)
	}

	// spec §3 Block's closed type set includes "evaluation"; a manual
	// recheck total is the one path in this lifecycle that produces it.
	evalBlocks := life.Chain().FindByType(BlockEvaluation)
	if len(evalBlocks) != 1 {
		t.Fatalf("expected exactly 1 evaluation block after a manual recheck, got %d", len(evalBlocks))
	}
}

// TestResolveInterventionMinesHumanInterventionBlock covers the closed
// Block-type set's "human_intervention" member: resolving a pending
// intervention must mine a block recording the reviewer's decision, not
// just update the relational row.
func TestResolveInterventionMinesHumanInterventionBlock(t *testing.T) {
	ctx := context.Background()
	ai := &stubAI{
		damageOutput:     map[string]interface{}{"quality_score": 0.3, "severe_count": 5, "is_recoverable": false},
		damageConfidence: 0.9,
	}
	life, _ := newTestLifecycle(t, ai)
	s, _, err := life.CreateScan(ctx, "roll-9", "exam-9", "Student Nine", []byte("img"), "scanner")
	if err != nil {
		t.Fatalf("create scan: %v", err)
	}
	if _, _, err := life.AssessQuality(ctx, s.SheetID, "assessor"); err != nil {
		t.Fatalf("assess quality: %v", err)
	}
	pending, err := life.PendingInterventions(ctx, "pending")
	if err != nil {
		t.Fatalf("pending interventions: %v", err)
	}
	if len(pending) == 0 {
		t.Fatalf("expected at least one pending intervention")
	}

	if err := life.ResolveIntervention(ctx, pending[0].InterventionID, "confirmed damaged, rescanned", "reviewer"); err != nil {
		t.Fatalf("resolve intervention: %v", err)
	}

	resolved, err := life.PendingInterventions(ctx, "resolved")
	if err != nil {
		t.Fatalf("list resolved interventions: %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("expected 1 resolved intervention, got %d", len(resolved))
	}
	if hiBlocks := life.Chain().FindByType(BlockHumanIntervention); len(hiBlocks) != 1 {
		t.Fatalf("expected exactly 1 human_intervention block after resolving, got %d", len(hiBlocks))
	}
}
