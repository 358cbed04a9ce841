package worker

import (
	"context"
	"path/filepath"
	"testing"

	"opex/internal/amqp"
	"opex/internal/core"
	"opex/internal/sheets/memory"
	"opex/internal/storage"
)

func TestHandleImportCompleted(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "opex.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	job := core.ImportJob{ID: "job-1", UserName: "priya", Filename: "fy26.xlsx", ImportType: "budgets", TotalRows: 1}
	saved, _, err := repo.CommitImport(ctx, job, []core.NormalizedRecord{{UID: "S-100", Total: 100}}, nil)
	if err != nil {
		t.Fatalf("CommitImport: %v", err)
	}

	store := memory.New()
	w := NewAuditWorker(repo, store)

	if err := w.HandleImportCompleted(ctx, &amqp.ImportCompletedMessage{JobID: saved.ID}); err != nil {
		t.Fatalf("HandleImportCompleted: %v", err)
	}

	entries := store.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d audit entries, want 1", len(entries))
	}
	if entries[0].ID != saved.ID || entries[0].AcceptedRows != 1 {
		t.Errorf("unexpected audit entry: %+v", entries[0])
	}
}

func TestHandleImportCompletedUnknownJob(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "opex.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	store := memory.New()
	w := NewAuditWorker(repo, store)

	// An unknown job ID is dropped, not requeued forever.
	if err := w.HandleImportCompleted(context.Background(), &amqp.ImportCompletedMessage{JobID: "nope"}); err != nil {
		t.Fatalf("HandleImportCompleted: %v", err)
	}
	if len(store.Entries()) != 0 {
		t.Error("unexpected audit entry for unknown job")
	}
}
