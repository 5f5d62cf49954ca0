package core

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// AnswerKeyStatus mirrors spec §3's AnswerKey.status progression.
type AnswerKeyStatus string

const (
	AnswerKeyPendingVerification AnswerKeyStatus = "pending_verification"
	AnswerKeyVerified            AnswerKeyStatus = "verified"
	AnswerKeyFlagged             AnswerKeyStatus = "flagged"
	AnswerKeyApproved            AnswerKeyStatus = "approved"
)

// AnswerKeyQuestion is one question's expected answer and mark value.
type AnswerKeyQuestion struct {
	Answer string  `json:"answer"`
	Marks  float64 `json:"marks"`
}

// AnswerKey maps question-id to its expected answer and marks (spec §3).
type AnswerKey struct {
	ExamID    string                       `json:"exam_id"`
	Questions map[string]AnswerKeyQuestion `json:"questions"` // "Q1".."Qn"
	Status    AnswerKeyStatus              `json:"status"`
}

// Validate enforces the AnswerKey invariants: contiguous Q1..Qn ids and
// strictly positive marks.
func (k AnswerKey) Validate() error {
	if len(k.Questions) == 0 {
		return newErr(KindInvalidState, "answer key has no questions")
	}
	for i := 1; i <= len(k.Questions); i++ {
		id := fmt.Sprintf("Q%d", i)
		q, ok := k.Questions[id]
		if !ok {
			return newErr(KindInvalidState, fmt.Sprintf("answer key is missing contiguous question %s", id))
		}
		if q.Marks <= 0 {
			return newErr(KindInvalidState, fmt.Sprintf("question %s has non-positive marks", id))
		}
	}
	return nil
}

// sortedQuestionIDs returns Q1..Qn in numeric order, used anywhere
// evaluation needs a deterministic iteration order over the key.
func (k AnswerKey) sortedQuestionIDs() []string {
	ids := make([]string, 0, len(k.Questions))
	for id := range k.Questions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ni, _ := strconv.Atoi(strings.TrimPrefix(ids[i], "Q"))
		nj, _ := strconv.Atoi(strings.TrimPrefix(ids[j], "Q"))
		return ni < nj
	})
	return ids
}

// markTolerance is the fixed tolerance for marks_match (spec §3/§4.2/§8).
const markTolerance = 0.01

// QuestionResult is the per-question outcome of tallying detected answers
// against an answer key.
type QuestionResult struct {
	QuestionID string  `json:"question_id"`
	Detected   string  `json:"detected"`
	Expected   string  `json:"expected"`
	Correct    bool    `json:"correct"`
	Marks      float64 `json:"marks"`
}

// TallyMarks credits marks for a question iff the detected answer equals
// the key answer case-insensitively; a blank "X" always scores zero (spec
// §4.2 Evaluation rule).
func TallyMarks(key AnswerKey, detected map[string]string) (total float64, maxMarks float64, details []QuestionResult) {
	for _, id := range key.sortedQuestionIDs() {
		q := key.Questions[id]
		maxMarks += q.Marks
		ans := detected[id]
		correct := ans != "X" && strings.EqualFold(ans, q.Answer)
		marks := 0.0
		if correct {
			marks = q.Marks
		}
		total += marks
		details = append(details, QuestionResult{QuestionID: id, Detected: ans, Expected: q.Answer, Correct: correct, Marks: marks})
	}
	return total, maxMarks, details
}

// AssignGrade buckets a percentage into the fixed grade bands from the
// original evaluation_service.py (spec §3 "derived grade").
func AssignGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B+"
	case percentage >= 60:
		return "B"
	case percentage >= 50:
		return "C"
	case percentage >= 40:
		return "D"
	default:
		return "F"
	}
}

// Evaluation is the computed score for one sheet (spec §3).
type Evaluation struct {
	SheetID            string           `json:"sheet_id"`
	AutomatedTotal     float64          `json:"automated_total"`
	ManualTotal        *float64         `json:"manual_total,omitempty"`
	MaxMarks           float64          `json:"max_marks"`
	Percentage         float64          `json:"percentage"`
	Grade              string           `json:"grade"`
	MarksMatch         bool             `json:"marks_match"`
	Discrepancy        float64          `json:"discrepancy"`
	RequiresInvestigation bool          `json:"requires_investigation"`
	IsPerfectEvaluation bool            `json:"is_perfect_evaluation"`
	QuestionResults    []QuestionResult `json:"question_results"`
}

// NewEvaluation computes an Evaluation from an automated tally and an
// optional manual total (spec §3 perfect vs. requires-investigation).
func NewEvaluation(sheetID string, automatedTotal, maxMarks float64, details []QuestionResult, manualTotal *float64) Evaluation {
	percentage := 0.0
	if maxMarks > 0 {
		percentage = (automatedTotal / maxMarks) * 100
	}
	ev := Evaluation{
		SheetID:         sheetID,
		AutomatedTotal:  automatedTotal,
		ManualTotal:     manualTotal,
		MaxMarks:        maxMarks,
		Percentage:      percentage,
		Grade:           AssignGrade(percentage),
		QuestionResults: details,
	}
	if manualTotal != nil {
		discrepancy := math.Abs(automatedTotal - *manualTotal)
		ev.Discrepancy = discrepancy
		ev.MarksMatch = discrepancy <= markTolerance
		ev.RequiresInvestigation = !ev.MarksMatch
		ev.IsPerfectEvaluation = ev.MarksMatch
	} else {
		ev.MarksMatch = true
		ev.RequiresInvestigation = false
		ev.IsPerfectEvaluation = false
	}
	return ev
}

// Result is the committed, published outcome of a sheet's evaluation
// (spec §3/§4.2 commitResult, §6 QR payload).
type Result struct {
	SheetID        string  `json:"sheet_id"`
	RollNumber     string  `json:"roll_number"`
	Total          float64 `json:"total"`
	Percentage     float64 `json:"percentage"`
	Grade          string  `json:"grade"`
	ResultHash     string  `json:"result_hash"`
	BlockHash      string  `json:"block_hash"`
	QR             QRPayload `json:"qr"`
}

// QRPayload is the canonical-JSON content encoded into the result's QR
// code (spec §4.2 Result commit, §6 On-disk formats). Rendering it to a
// PNG is an HTTP-layer concern outside the ledger/lifecycle core — see
// SPEC_FULL.md §6.
type QRPayload struct {
	RollNumber     string `json:"roll_number"`
	ResultHash     string `json:"result_hash"`
	BlockchainHash string `json:"blockchain_hash"`
	VerifyURL      string `json:"verify_url"`
}
