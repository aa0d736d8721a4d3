// Package handler exposes the assessment service as a JSON API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/pavelanni/assessor/internal/apperr"
	appI18n "github.com/pavelanni/assessor/internal/i18n"
	"github.com/pavelanni/assessor/internal/model"
	"github.com/pavelanni/assessor/internal/policy"
	"github.com/pavelanni/assessor/internal/service"
)

const maxBodyBytes = 1 << 20

// Store holds the account and question bank operations used directly by
// the HTTP layer.
type Store interface {
	CreateUser(ctx context.Context, u model.User) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	CreateAuthSession(ctx context.Context, userID int64, now time.Time) (string, error)
	GetAuthSession(ctx context.Context, token string, now time.Time) (*model.AuthSession, error)
	DeleteAuthSession(ctx context.Context, token string) error
	ListQuestions(ctx context.Context, difficulty model.Difficulty, topic string) ([]model.Question, error)
	ListDistinctTopics(ctx context.Context) ([]string, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	svc        *service.Service
	store      Store
	clock      policy.Clock
	validate   *validator.Validate
	translator ut.Translator
}

// New creates a new Handler. A nil clock means the system clock.
func New(svc *service.Service, st Store, clock policy.Clock) (*Handler, error) {
	if clock == nil {
		clock = policy.SystemClock{}
	}
	v := validator.New()
	// Report JSON field names rather than Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	enLocale := en.New()
	trans, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, err
	}
	return &Handler{svc: svc, store: st, clock: clock, validate: v, translator: trans}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/api/logout", h.handleLogout)
		r.Get("/api/sessions/{sessionID}", h.handleGetSession)
		r.Get("/api/attempts/{attemptID}", h.handleGetAttempt)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleTeacher, model.UserRoleAdmin))
			r.Get("/api/questions", h.handleListQuestions)
			r.Post("/api/questions", h.handleImportQuestions)
			r.Get("/api/topics", h.handleListTopics)
			r.Get("/api/exams", h.handleListExams)
			r.Post("/api/exams", h.handleCreateExam)
			r.Get("/api/exams/{examID}", h.handleGetExam)
			r.Get("/api/exams/{examID}/sessions", h.handleListSessions)
			r.Post("/api/exams/{examID}/questions", h.handleAddQuestion)
			r.Put("/api/exams/{examID}/questions/{questionID}", h.handleReplaceQuestion)
			r.Delete("/api/exams/{examID}/questions/{questionID}", h.handleRemoveQuestion)
			r.Get("/api/exams/{examID}/validation", h.handleValidateExam)
			r.Post("/api/exams/{examID}/publish", h.handlePublishExam)
			r.Post("/api/sessions", h.handleCreateSession)
			r.Post("/api/sessions/{sessionID}/active", h.handleSetSessionActive)
			r.Get("/api/sessions/{sessionID}/export", h.handleExportSession)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleStudent))
			r.Post("/api/sessions/{sessionID}/attempts", h.handleStartAttempt)
			r.Post("/api/sessions/{sessionID}/attempts/{attemptID}/submit", h.handleSubmitAttempt)
			r.Get("/api/attempts/{attemptID}/paper", h.handleGetPaper)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Post("/api/users", h.handleCreateUser)
		})
	})
}

// idParam parses a positive integer URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.CodeInvalidRequest, "invalid "+name)
	}
	return id, nil
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(apperr.CodeInvalidRequest, "decode request body", err)
	}
	return h.validate.Struct(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type violation struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type errorBody struct {
	Code       apperr.Code `json:"code"`
	Kind       apperr.Kind `json:"kind"`
	Message    string      `json:"message"`
	Violations []violation `json:"violations,omitempty"`
}

// writeError renders err as a localized error envelope. Errors outside the
// domain are logged and reported without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, extra ...violation) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		body := errorBody{
			Code:    apperr.CodeInvalidRequest,
			Kind:    apperr.KindValidation,
			Message: appI18n.T(r.Context(), string(apperr.CodeInvalidRequest)),
		}
		for _, fe := range verrs {
			// Drop the request struct name from the namespace.
			field := fe.Namespace()
			if _, rest, ok := strings.Cut(field, "."); ok {
				field = rest
			}
			body.Violations = append(body.Violations, violation{
				Field:   field,
				Code:    fe.Tag(),
				Message: fe.Translate(h.translator),
			})
		}
		writeJSON(w, http.StatusBadRequest, map[string]errorBody{"error": body})
		return
	}

	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Wrap(apperr.CodeUnknown, "internal error", err)
	}
	status := apperr.HTTPStatus(e)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "error", err)
	}
	body := errorBody{
		Code:       e.Code,
		Kind:       e.Kind(),
		Message:    appI18n.Message(r.Context(), string(e.Code), e.Metadata, e.Message),
		Violations: extra,
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}
