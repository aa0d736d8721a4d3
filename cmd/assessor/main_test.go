package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pavelanni/assessor/internal/service"
	"github.com/pavelanni/assessor/internal/store"
)

var loadTime = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

const bankJSON = `[
  {"text": "2+2?", "type": "multiple_choice", "difficulty": "easy", "topic": "math", "level": "remember",
   "answers": [{"id": "A", "content": "4", "is_correct": true}, {"id": "B", "content": "5"}]},
  {"text": "Explain limits.", "type": "essay", "difficulty": "hard", "topic": "math", "level": "analyze"}
]`

func newCmdStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadQuestionsImportsOnce(t *testing.T) {
	ctx := context.Background()
	db := newCmdStore(t)
	svc := service.New(db, db, nil)
	path := writeFile(t, t.TempDir(), "bank.json", bankJSON)

	if err := loadQuestions(ctx, db, svc, []string{path}, loadTime); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if err := loadQuestions(ctx, db, svc, []string{path}, loadTime); err != nil {
		t.Fatalf("second load: %v", err)
	}
	n, err := db.QuestionCount(ctx)
	if err != nil {
		t.Fatalf("QuestionCount: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 questions after loading twice, got %d", n)
	}

	// A changed file is skipped rather than re-imported.
	writeFile(t, filepath.Dir(path), "bank.json", bankJSON+"\n")
	if err := loadQuestions(ctx, db, svc, []string{path}, loadTime); err != nil {
		t.Fatalf("changed load: %v", err)
	}
	if n, _ := db.QuestionCount(ctx); n != 2 {
		t.Errorf("changed file was re-imported: %d questions", n)
	}
}

func TestLoadQuestionsRejectsInvalidBank(t *testing.T) {
	ctx := context.Background()
	db := newCmdStore(t)
	svc := service.New(db, db, nil)
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `[{"text": `},
		{"choice without key", `[{"text": "x", "type": "multiple_choice", "difficulty": "easy",
		  "answers": [{"id": "A", "content": "1"}, {"id": "B", "content": "2"}]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name+".json", tt.content)
			if err := loadQuestions(ctx, db, svc, []string{path}, loadTime); err == nil {
				t.Fatal("expected error")
			}
			if h, _ := db.ImportedFileHash(ctx, path); h != "" {
				t.Errorf("failed import must not be recorded")
			}
		})
	}
	if n, _ := db.QuestionCount(ctx); n != 0 {
		t.Errorf("expected no questions, got %d", n)
	}
}

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	db := newCmdStore(t)

	if err := seedAdmin(ctx, db, "", loadTime); err == nil {
		t.Fatal("expected error without a password")
	}
	if err := seedAdmin(ctx, db, "s3cret-pass", loadTime); err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	u, err := db.GetUserByUsername(ctx, "admin")
	if err != nil || u == nil {
		t.Fatalf("admin not created: %v", err)
	}
	// Seeding is a no-op once users exist.
	if err := seedAdmin(ctx, db, "", loadTime); err != nil {
		t.Errorf("second seed: %v", err)
	}
}
