// Package service implements the assessment operations: exam composition,
// session assignment, attempt start and submission. It owns the clock and
// the order of checks; the store owns atomicity.
package service

import (
	"context"
	"time"

	"github.com/pavelanni/assessor/internal/model"
	"github.com/pavelanni/assessor/internal/policy"
	"github.com/pavelanni/assessor/internal/store"
)

// Catalog serves the authoritative question data for grading.
type Catalog interface {
	QuestionsWithAnswers(ctx context.Context, examID int64) ([]model.QuestionSpec, error)
}

// Store is the persistence the service needs.
type Store interface {
	InsertQuestions(ctx context.Context, qs []model.QuestionImport) ([]int64, error)
	GetQuestion(ctx context.Context, id int64) (*model.Question, error)
	QuestionMeta(ctx context.Context, ids []int64) (map[int64]model.QuestionMeta, error)

	CreateExam(ctx context.Context, e model.Exam) (int64, error)
	SaveExam(ctx context.Context, e model.Exam) error
	GetExam(ctx context.Context, id int64) (*model.Exam, error)
	ListExams(ctx context.Context) ([]model.Exam, error)

	CreateSession(ctx context.Context, sess model.Session) (int64, error)
	GetSession(ctx context.Context, id int64) (*model.Session, error)
	SetSessionActive(ctx context.Context, id int64, active bool) error
	ListSessionsForExam(ctx context.Context, examID int64) ([]model.Session, error)

	StartAttempt(ctx context.Context, sessionID, studentID int64, now time.Time, gate store.StartGate) (model.Attempt, error)
	SubmitAttempt(ctx context.Context, graded model.Attempt) error
	GetAttempt(ctx context.Context, id int64) (*model.Attempt, error)
	CountAttempts(ctx context.Context, sessionID, studentID int64) (int, error)

	ExportSession(ctx context.Context, sessionID int64) (*model.SessionExport, error)
}

// Service coordinates the assessment workflow.
type Service struct {
	store   Store
	catalog Catalog
	clock   policy.Clock
}

// New creates a Service. A nil clock means the system clock.
func New(st Store, catalog Catalog, clock policy.Clock) *Service {
	if clock == nil {
		clock = policy.SystemClock{}
	}
	return &Service{store: st, catalog: catalog, clock: clock}
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}
