package core

import "testing"

func sampleAnswerKey() AnswerKey {
	return AnswerKey{
		ExamID: "exam-1",
		Questions: map[string]AnswerKeyQuestion{
			"Q1": {Answer: "A", Marks: 2},
			"Q2": {Answer: "B", Marks: 3},
			"Q3": {Answer: "C", Marks: 5},
		},
		Status: AnswerKeyApproved,
	}
}

func TestAnswerKeyValidateRequiresContiguousQuestions(t *testing.T) {
	key := AnswerKey{Questions: map[string]AnswerKeyQuestion{
		"Q1": {Answer: "A", Marks: 1},
		"Q3": {Answer: "C", Marks: 1},
	}}
	if err := key.Validate(); err == nil {
		t.Fatalf("expected error for non-contiguous question ids")
	}
}

func TestAnswerKeyValidateRejectsNonPositiveMarks(t *testing.T) {
	key := AnswerKey{Questions: map[string]AnswerKeyQuestion{
		"Q1": {Answer: "A", Marks: 0},
	}}
	if err := key.Validate(); err == nil {
		t.Fatalf("expected error for non-positive marks")
	}
}

func TestAnswerKeyValidateRejectsEmpty(t *testing.T) {
	key := AnswerKey{Questions: map[string]AnswerKeyQuestion{}}
	if err := key.Validate(); err == nil {
		t.Fatalf("expected error for an answer key with no questions")
	}
}

func TestTallyMarksCaseInsensitiveMatch(t *testing.T) {
	key := sampleAnswerKey()
	detected := map[string]string{"Q1": "a", "Q2": "b", "Q3": "d"}
	total, maxMarks, details := TallyMarks(key, detected)
	if maxMarks != 10 {
		t.Fatalf("expected max marks 10, got %v", maxMarks)
	}
	if total != 5 {
		t.Fatalf("expected total 5 (Q1+Q2 correct, Q3 wrong), got %v", total)
	}
	if len(details) != 3 {
		t.Fatalf("expected 3 question results, got %d", len(details))
	}
	if !details[0].Correct || !details[1].Correct || details[2].Correct {
		t.Fatalf("unexpected correctness pattern: %+v", details)
	}
}

func TestTallyMarksBlankNeverScores(t *testing.T) {
	key := AnswerKey{Questions: map[string]AnswerKeyQuestion{"Q1": {Answer: "X", Marks: 5}}}
	detected := map[string]string{"Q1": "X"}
	total, _, _ := TallyMarks(key, detected)
	if total != 0 {
		t.Fatalf("expected a blank 'X' detection to never score, even when the key answer is literally X, got %v", total)
	}
}

func TestAssignGradeBands(t *testing.T) {
	cases := []struct {
		pct  float64
		want string
	}{
		{95, "A+"}, {90, "A+"}, {85, "A"}, {80, "A"}, {75, "B+"}, {70, "B+"},
		{65, "B"}, {60, "B"}, {55, "C"}, {50, "C"}, {45, "D"}, {40, "D"}, {39.9, "F"}, {0, "F"},
	}
	for _, c := range cases {
		if got := AssignGrade(c.pct); got != c.want {
			t.Fatalf("AssignGrade(%v) = %s, want %s", c.pct, got, c.want)
		}
	}
}

func TestNewEvaluationPerfectWithinTolerance(t *testing.T) {
	manual := 9.995
	ev := NewEvaluation("s1", 10, 10, nil, &manual)
	if !ev.MarksMatch {
		t.Fatalf("expected marks to match within tolerance")
	}
	if !ev.IsPerfectEvaluation {
		t.Fatalf("expected a within-tolerance match to be a perfect evaluation")
	}
	if ev.RequiresInvestigation {
		t.Fatalf("expected no investigation required when marks match")
	}
}

func TestNewEvaluationDiscrepancyRequiresInvestigation(t *testing.T) {
	manual := 8.0
	ev := NewEvaluation("s1", 10, 10, nil, &manual)
	if ev.MarksMatch {
		t.Fatalf("expected marks mismatch beyond tolerance")
	}
	if !ev.RequiresInvestigation {
		t.Fatalf("expected investigation required on a mismatch beyond tolerance")
	}
	if ev.IsPerfectEvaluation {
		t.Fatalf("expected a mismatched evaluation to not be perfect")
	}
	if ev.Discrepancy != 2 {
		t.Fatalf("expected discrepancy of 2, got %v", ev.Discrepancy)
	}
}

func TestNewEvaluationNoManualTotal(t *testing.T) {
	ev := NewEvaluation("s1", 7, 10, nil, nil)
	if !ev.MarksMatch {
		t.Fatalf("expected automated-only evaluation to report marks_match true")
	}
	if ev.RequiresInvestigation {
		t.Fatalf("expected no investigation without a manual total to compare against")
	}
	if ev.Percentage != 70 {
		t.Fatalf("expected 70%%, got %v", ev.Percentage)
	}
	if ev.Grade != "B+" {
		t.Fatalf("expected grade B+, got %s", ev.Grade)
	}
}

func TestNewEvaluationZeroMaxMarksNoDivideByZero(t *testing.T) {
	ev := NewEvaluation("s1", 0, 0, nil, nil)
	if ev.Percentage != 0 {
		t.Fatalf("expected 0%% when max marks is 0, got %v", ev.Percentage)
	}
}
