package scoring

import (
	"errors"
	"testing"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/model"
)

func choice(id string, correct bool) model.AnswerOption {
	return model.AnswerOption{ID: id, Content: "option " + id, IsCorrect: correct}
}

func multiAnswerQuestion(points float64) model.QuestionSpec {
	return model.QuestionSpec{
		ID:     1,
		Points: points,
		Type:   model.QuestionMultipleAnswer,
		Answers: []model.AnswerOption{
			choice("A", true), choice("B", true), choice("C", true), choice("D", false),
		},
	}
}

func TestScoreMultipleAnswer(t *testing.T) {
	q := multiAnswerQuestion(4)
	partial := Options{AllowPartialScoring: true}

	tests := []struct {
		name        string
		selected    []string
		opts        Options
		wantScore   float64
		wantCorrect bool
		wantPartial bool
	}{
		{"exact match", []string{"A", "B", "C"}, partial, 4, true, false},
		{"exact match any order and case", []string{"c", " a", "B"}, partial, 4, true, false},
		{"two of three", []string{"A", "B"}, partial, 2.67, false, true},
		{"one right one wrong", []string{"A", "D"}, partial, 0, false, false},
		{"only wrong", []string{"D"}, partial, 0, false, false},
		{"all plus wrong", []string{"A", "B", "C", "D"}, partial, 2.67, false, true},
		{"duplicates collapse", []string{"A", "a", "B"}, partial, 2.67, false, true},
		{"partial disabled", []string{"A", "B"}, Options{}, 0, false, false},
		{"exact match partial disabled", []string{"A", "B", "C"}, Options{}, 4, true, false},
		{"no selection", nil, partial, 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScoreQuestion(q, tt.selected, tt.opts)
			if err != nil {
				t.Fatalf("ScoreQuestion: %v", err)
			}
			if got.Score != tt.wantScore {
				t.Errorf("score = %v, want %v", got.Score, tt.wantScore)
			}
			if got.IsCorrect != tt.wantCorrect {
				t.Errorf("isCorrect = %v, want %v", got.IsCorrect, tt.wantCorrect)
			}
			if got.IsPartial != tt.wantPartial {
				t.Errorf("isPartial = %v, want %v", got.IsPartial, tt.wantPartial)
			}
		})
	}
}

func TestScoreSingleChoice(t *testing.T) {
	for _, typ := range []model.QuestionType{model.QuestionMultipleChoice, model.QuestionTrueFalse} {
		q := model.QuestionSpec{
			ID: 2, Points: 3, Type: typ,
			Answers: []model.AnswerOption{choice("T", true), choice("F", false)},
		}
		tests := []struct {
			name      string
			selected  []string
			wantScore float64
		}{
			{"correct", []string{"T"}, 3},
			{"correct lower case", []string{"t"}, 3},
			{"wrong", []string{"F"}, 0},
			{"two selections", []string{"T", "F"}, 0},
			{"duplicates collapse", []string{"T", " t"}, 3},
			{"wrong duplicates collapse", []string{"F", "f"}, 0},
			{"unknown id", []string{"X"}, 0},
			{"none", []string{}, 0},
		}
		for _, tt := range tests {
			t.Run(string(typ)+"/"+tt.name, func(t *testing.T) {
				got, err := ScoreQuestion(q, tt.selected, Options{AllowPartialScoring: true})
				if err != nil {
					t.Fatalf("ScoreQuestion: %v", err)
				}
				if got.Score != tt.wantScore {
					t.Errorf("score = %v, want %v", got.Score, tt.wantScore)
				}
				if got.IsCorrect != (tt.wantScore > 0) {
					t.Errorf("isCorrect = %v", got.IsCorrect)
				}
				if got.IsPartial {
					t.Error("single-choice questions never score partially")
				}
			})
		}
	}
}

func TestScoreFillInBlank(t *testing.T) {
	q := model.QuestionSpec{
		ID: 3, Points: 2, Type: model.QuestionFillInBlank,
		Answers: []model.AnswerOption{
			{ID: "a1", Content: "Paris", IsCorrect: true},
			{ID: "a2", Content: " Paris, France ", IsCorrect: true},
			{ID: "a3", Content: "Lyon", IsCorrect: false},
		},
	}
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"padded lower case", " paris ", 2},
		{"second accepted answer", "paris, france", 2},
		{"answer not flagged correct", "Lyon", 0},
		{"wrong", "London", 0},
		{"blank", "   ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScoreQuestion(q, []string{tt.text}, Options{})
			if err != nil {
				t.Fatalf("ScoreQuestion: %v", err)
			}
			if got.Score != tt.want {
				t.Errorf("score = %v, want %v", got.Score, tt.want)
			}
		})
	}
}

func TestScoreUnsupportedType(t *testing.T) {
	_, err := ScoreQuestion(model.QuestionSpec{ID: 9, Points: 1, Type: "matching"}, []string{"A"}, Options{})
	if !errors.Is(err, apperr.New(apperr.CodeQuestionTypeUnsupported, "")) {
		t.Fatalf("expected unsupported type error, got %v", err)
	}
}

func TestGradeExcludesEssay(t *testing.T) {
	questions := []model.QuestionSpec{
		{ID: 10, Points: 5, Type: model.QuestionMultipleChoice,
			Answers: []model.AnswerOption{choice("A", true), choice("B", false)}},
		{ID: 11, Points: 10, Type: model.QuestionEssay},
	}
	res, err := Grade(questions, map[int64][]string{10: {"A"}, 11: {"long text"}}, Options{})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if res.TotalPoints != 5 {
		t.Errorf("total points = %v, want 5", res.TotalPoints)
	}
	if res.Score != 5 {
		t.Errorf("score = %v, want 5", res.Score)
	}
	if res.Percentage != 100 {
		t.Errorf("percentage = %v, want 100", res.Percentage)
	}
	if len(res.Answers) != 1 || res.Answers[0].QuestionID != 10 {
		t.Errorf("expected a single graded answer for question 10, got %+v", res.Answers)
	}
	if !res.HasEssay {
		t.Error("expected HasEssay")
	}
}

func TestGradeUnansweredAndOrder(t *testing.T) {
	questions := []model.QuestionSpec{
		multiAnswerQuestion(4),
		{ID: 2, Points: 1, Type: model.QuestionTrueFalse,
			Answers: []model.AnswerOption{choice("T", true), choice("F", false)}},
		{ID: 3, Points: 1, Type: model.QuestionFillInBlank,
			Answers: []model.AnswerOption{{ID: "x", Content: "Go", IsCorrect: true}}},
	}
	res, err := Grade(questions, map[int64][]string{1: {"A", "B"}, 3: {"go"}}, Options{AllowPartialScoring: true})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if len(res.Answers) != 3 {
		t.Fatalf("expected 3 graded answers, got %d", len(res.Answers))
	}
	for i, id := range []int64{1, 2, 3} {
		if res.Answers[i].QuestionID != id {
			t.Errorf("answer %d: question %d, want %d", i, res.Answers[i].QuestionID, id)
		}
	}
	unanswered := res.Answers[1]
	if unanswered.Score != 0 || unanswered.IsCorrect || unanswered.IsPartial {
		t.Errorf("unanswered question should score zero, got %+v", unanswered)
	}
	if res.Score != 3.67 {
		t.Errorf("score = %v, want 3.67", res.Score)
	}
	if res.TotalPoints != 6 {
		t.Errorf("total = %v, want 6", res.TotalPoints)
	}
	if res.Percentage != 61.17 {
		t.Errorf("percentage = %v, want 61.17", res.Percentage)
	}
}

func TestGradeOnlyEssays(t *testing.T) {
	res, err := Grade([]model.QuestionSpec{{ID: 1, Points: 10, Type: model.QuestionEssay}}, nil, Options{})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if res.TotalPoints != 0 || res.Percentage != 0 {
		t.Errorf("expected zero totals, got %+v", res)
	}
	if len(res.Answers) != 0 {
		t.Errorf("expected no graded answers")
	}
}

func TestCaseVariantSelectionScoresAlikeAcrossTypes(t *testing.T) {
	answers := []model.AnswerOption{choice("A", true), choice("B", false)}
	selected := []string{"A", "a"}
	for _, typ := range []model.QuestionType{model.QuestionMultipleChoice, model.QuestionMultipleAnswer} {
		q := model.QuestionSpec{ID: 4, Points: 3, Type: typ, Answers: answers}
		got, err := ScoreQuestion(q, selected, Options{})
		if err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		if got.Score != 3 || !got.IsCorrect {
			t.Errorf("%s: got %+v, want full credit", typ, got)
		}
	}
}
