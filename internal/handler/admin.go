package handler

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/assessor/internal/apperr"
	appI18n "github.com/pavelanni/assessor/internal/i18n"
	"github.com/pavelanni/assessor/internal/model"
)

type createUserRequest struct {
	Username    string         `json:"username" validate:"required,min=3,max=64"`
	DisplayName string         `json:"display_name" validate:"max=128"`
	Password    string         `json:"password" validate:"required,min=8"`
	Role        model.UserRole `json:"role" validate:"required,oneof=student teacher admin"`
}

type importQuestionsRequest struct {
	Questions []model.QuestionImport `json:"questions" validate:"required,min=1"`
}

type importQuestionsResponse struct {
	IDs     []int64 `json:"ids"`
	Message string  `json:"message"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		h.writeError(w, r, err)
		return
	}

	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	u := model.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
		CreatedAt:    h.clock.Now(),
	}
	id, err := h.store.CreateUser(r.Context(), u)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	u.ID = id
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	difficulty := model.Difficulty(r.URL.Query().Get("difficulty"))
	switch difficulty {
	case "", model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	default:
		h.writeError(w, r, apperr.New(apperr.CodeInvalidRequest, "unknown difficulty "+string(difficulty)))
		return
	}
	qs, err := h.store.ListQuestions(r.Context(), difficulty, r.URL.Query().Get("topic"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if qs == nil {
		qs = []model.Question{}
	}
	writeJSON(w, http.StatusOK, qs)
}

func (h *Handler) handleImportQuestions(w http.ResponseWriter, r *http.Request) {
	var req importQuestionsRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ids, err := h.svc.ImportQuestions(r.Context(), req.Questions)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, importQuestionsResponse{
		IDs:     ids,
		Message: appI18n.Tp(r.Context(), "QuestionsImported", len(ids)),
	})
}

func (h *Handler) handleListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.store.ListDistinctTopics(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if topics == nil {
		topics = []string{}
	}
	writeJSON(w, http.StatusOK, topics)
}
