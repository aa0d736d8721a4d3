package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pavelanni/assessor/internal/apperr"
	"github.com/pavelanni/assessor/internal/model"
	"github.com/pavelanni/assessor/internal/service"
)

type createSessionRequest struct {
	ExamID              int64     `json:"exam_id" validate:"required,gt=0"`
	ClassID             int64     `json:"class_id" validate:"required,gt=0"`
	StartsAt            time.Time `json:"starts_at" validate:"required"`
	EndsAt              time.Time `json:"ends_at" validate:"required"`
	IsRetryable         bool      `json:"is_retryable"`
	RetryTimes          int       `json:"retry_times"`
	ShuffleQuestions    bool      `json:"shuffle_questions"`
	ShuffleAnswers      bool      `json:"shuffle_answers"`
	AllowPartialScoring bool      `json:"allow_partial_scoring"`
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type answerRequest struct {
	QuestionID int64    `json:"question_id" validate:"required,gt=0"`
	Selected   []string `json:"selected"`
}

type submitRequest struct {
	Answers []answerRequest `json:"answers" validate:"omitempty,dive"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sess, err := h.svc.CreateSession(r.Context(), service.NewSession{
		ExamID:              req.ExamID,
		ClassID:             req.ClassID,
		Window:              model.Window{Start: req.StartsAt, End: req.EndsAt},
		Retry:               model.RetryPolicy{IsRetryable: req.IsRetryable, RetryTimes: req.RetryTimes},
		ShuffleQuestions:    req.ShuffleQuestions,
		ShuffleAnswers:      req.ShuffleAnswers,
		AllowPartialScoring: req.AllowPartialScoring,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := h.svc.GetSession(r.Context(), sess.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := idParam(r, "sessionID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var view *service.SessionView
	if user := model.UserFromContext(r.Context()); user != nil && user.Role == model.UserRoleStudent {
		view, err = h.svc.GetSessionForStudent(r.Context(), sessionID, user.ID)
	} else {
		view, err = h.svc.GetSession(r.Context(), sessionID)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	examID, err := idParam(r, "examID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	views, err := h.svc.ListSessions(r.Context(), examID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleSetSessionActive(w http.ResponseWriter, r *http.Request) {
	sessionID, err := idParam(r, "sessionID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req setActiveRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := h.svc.SetSessionActive(r.Context(), sessionID, *req.Active)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleExportSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := idParam(r, "sessionID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	export, err := h.svc.ExportSession(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=session-%d.json", sessionID))
	writeJSON(w, http.StatusOK, export)
}

func (h *Handler) handleStartAttempt(w http.ResponseWriter, r *http.Request) {
	sessionID, err := idParam(r, "sessionID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	student := model.UserFromContext(r.Context())
	attempt, err := h.svc.StartAttempt(r.Context(), sessionID, student.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}

func (h *Handler) handleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	sessionID, err := idParam(r, "sessionID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	attemptID, err := idParam(r, "attemptID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req submitRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sub := service.Submission{
		AttemptID: attemptID,
		SessionID: sessionID,
		StudentID: model.UserFromContext(r.Context()).ID,
	}
	for _, a := range req.Answers {
		sub.Answers = append(sub.Answers, model.SubmittedAnswer{QuestionID: a.QuestionID, Selected: a.Selected})
	}
	summary, err := h.svc.SubmitAttempt(r.Context(), sub)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	attemptID, err := idParam(r, "attemptID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	paper, err := h.svc.GetAttemptPaper(r.Context(), attemptID, model.UserFromContext(r.Context()).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paper)
}

// handleGetAttempt serves an attempt to its owner or to staff.
func (h *Handler) handleGetAttempt(w http.ResponseWriter, r *http.Request) {
	attemptID, err := idParam(r, "attemptID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	attempt, err := h.svc.GetAttempt(r.Context(), attemptID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user := model.UserFromContext(r.Context())
	if user.Role == model.UserRoleStudent && attempt.StudentID != user.ID {
		h.writeError(w, r, apperr.New(apperr.CodePermissionDenied,
			fmt.Sprintf("attempt %d belongs to another student", attemptID)))
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}
