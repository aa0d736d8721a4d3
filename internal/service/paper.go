package service

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/model"
)

// PaperOption is an answer option as shown to a student.
type PaperOption struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// PaperQuestion is a question as shown to a student, without the key.
type PaperQuestion struct {
	ID      int64              `json:"id"`
	Text    string             `json:"text"`
	Type    model.QuestionType `json:"type"`
	Points  float64            `json:"points"`
	Options []PaperOption      `json:"options,omitempty"`
}

// Paper is the question sheet of one attempt. TotalPoints counts only
// auto-graded questions.
type Paper struct {
	AttemptID   int64           `json:"attempt_id"`
	SessionID   int64           `json:"session_id"`
	ExamID      int64           `json:"exam_id"`
	TotalPoints float64         `json:"total_points"`
	Questions   []PaperQuestion `json:"questions"`
}

// paperSeed keeps the shuffle stream distinct from other uses of the attempt ID.
const paperSeed = 0x61737365

// GetAttemptPaper returns the attempt's questions for the owning student.
// When the session shuffles, the order is fixed per attempt so reloading
// the paper shows the same sequence.
func (s *Service) GetAttemptPaper(ctx context.Context, attemptID, studentID int64) (*Paper, error) {
	attempt, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.StudentID != studentID {
		return nil, apperr.New(apperr.CodeAttemptNotOwned,
			fmt.Sprintf("attempt %d does not belong to student %d", attemptID, studentID))
	}
	sess, err := s.GetSession(ctx, attempt.SessionID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questionsFor(ctx, sess.ExamID)
	if err != nil {
		return nil, err
	}

	paper := &Paper{AttemptID: attempt.ID, SessionID: sess.ID, ExamID: sess.ExamID}
	rng := rand.New(rand.NewPCG(uint64(attempt.ID), paperSeed))
	for _, q := range questions {
		pq := PaperQuestion{ID: q.ID, Text: q.Text, Type: q.Type, Points: q.Points}
		// Fill-in and essay options are the answer key itself.
		if q.Type != model.QuestionFillInBlank && q.Type != model.QuestionEssay {
			for _, a := range q.Answers {
				pq.Options = append(pq.Options, PaperOption{ID: a.ID, Content: a.Content})
			}
			if sess.ShuffleAnswers {
				rng.Shuffle(len(pq.Options), func(i, j int) {
					pq.Options[i], pq.Options[j] = pq.Options[j], pq.Options[i]
				})
			}
		}
		// Essay points are awarded by a grader later, as on the graded attempt.
		if q.Type.Objective() {
			paper.TotalPoints += q.Points
		}
		paper.Questions = append(paper.Questions, pq)
	}
	if sess.ShuffleQuestions {
		rng.Shuffle(len(paper.Questions), func(i, j int) {
			paper.Questions[i], paper.Questions[j] = paper.Questions[j], paper.Questions[i]
		})
	}
	return paper, nil
}
