package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsByCode(t *testing.T) {
	err := fmt.Errorf("start attempt: %w", New(CodeAttemptRetryExhausted, "retry limit reached"))

	if !errors.Is(err, New(CodeAttemptRetryExhausted, "")) {
		t.Error("expected errors.Is to match by code")
	}
	if errors.Is(err, New(CodeSessionNotActive, "")) {
		t.Error("expected different code not to match")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeCatalogUnavailable, "fetch questions", cause)

	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable")
	}
	if got := err.Error(); got != "fetch questions: connection refused" {
		t.Errorf("Error() = %q", got)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", New(CodeExamDuplicateOrderIndex, "x"), KindValidation},
		{"policy", New(CodeAttemptNotInProgress, "x"), KindPolicy},
		{"not found", New(CodeSessionNotFound, "x"), KindNotFound},
		{"dependency", New(CodeCatalogUnavailable, "x"), KindDependency},
		{"wrapped", fmt.Errorf("outer: %w", New(CodeAttemptNotFound, "x")), KindNotFound},
		{"plain error", errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(CodeExamPointsMismatch, "x"), http.StatusBadRequest},
		{New(CodeSessionDuplicate, "x"), http.StatusConflict},
		{New(CodeAttemptNotInProgress, "x"), http.StatusConflict},
		{New(CodeAttemptRetryExhausted, "x"), http.StatusUnprocessableEntity},
		{New(CodeExamNotFound, "x"), http.StatusNotFound},
		{New(CodeCatalogUnavailable, "x"), http.StatusServiceUnavailable},
		{New(CodeUnauthenticated, "x"), http.StatusUnauthorized},
		{New(CodePermissionDenied, "x"), http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
