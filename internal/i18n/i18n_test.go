package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return WithLocalizer(context.Background(), NewLocalizer(lang))
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "AppTitle"); got != "Assessor" {
		t.Errorf("T(AppTitle) = %q, want 'Assessor'", got)
	}
	if got := T(ctx, "ATTEMPT_NOT_FOUND"); got != "Attempt not found." {
		t.Errorf("T(ATTEMPT_NOT_FOUND) = %q", got)
	}
}

func TestTranslateVietnamese(t *testing.T) {
	ctx := initLang(t, "vi")

	if got := T(ctx, "ATTEMPT_NOT_FOUND"); got != "Không tìm thấy bài làm." {
		t.Errorf("T(ATTEMPT_NOT_FOUND) = %q", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "QuestionsImported", 1); got != "1 question imported." {
		t.Errorf("Tp(QuestionsImported, 1) = %q", got)
	}
	if got := Tp(ctx, "QuestionsImported", 5); got != "5 questions imported." {
		t.Errorf("Tp(QuestionsImported, 5) = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Td(ctx, "SessionN", map[string]any{"ID": 42}); got != "Session #42" {
		t.Errorf("Td(SessionN, ID=42) = %q, want 'Session #42'", got)
	}
}

func TestMessage(t *testing.T) {
	ctx := initLang(t, "en")

	got := Message(ctx, "SESSION_DUPLICATE", map[string]string{"ClassID": "3", "ExamID": "7"}, "fallback")
	if got != "Class 3 already has a session for exam 7." {
		t.Errorf("Message(SESSION_DUPLICATE) = %q", got)
	}
	if got := Message(ctx, "NO_SUCH_CODE", nil, "fallback"); got != "fallback" {
		t.Errorf("Message(NO_SUCH_CODE) = %q, want fallback", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestMiddlewareNegotiatesLanguage(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(T(r.Context(), "SESSION_NOT_FOUND")))
	}))

	tests := []struct {
		accept   string
		wantLang string
		wantBody string
	}{
		{"", "en", "Session not found."},
		{"vi-VN,vi;q=0.9,en;q=0.5", "vi", "Không tìm thấy ca thi."},
		{"de-DE", "en", "Session not found."},
		{"fr;q=0.8,en-GB;q=0.9", "en", "Session not found."},
	}
	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if got := rec.Header().Get("Content-Language"); got != tt.wantLang {
				t.Errorf("Content-Language = %q, want %q", got, tt.wantLang)
			}
			if got := rec.Body.String(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}
