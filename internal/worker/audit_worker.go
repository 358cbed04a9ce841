package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"opex/internal/amqp"
	"opex/internal/sheets"
	"opex/internal/storage"
)

// AuditWorker mirrors committed import jobs onto the external audit sheet.
// It consumes import-completed messages and looks the job up in SQLite, so a
// replayed message just re-appends the same audit row.
type AuditWorker struct {
	storage *storage.SQLiteRepository
	sheets  sheets.AuditWriter
}

func NewAuditWorker(repo *storage.SQLiteRepository, writer sheets.AuditWriter) *AuditWorker {
	return &AuditWorker{
		storage: repo,
		sheets:  writer,
	}
}

// HandleImportCompleted processes a single import-completed message.
func (w *AuditWorker) HandleImportCompleted(ctx context.Context, msg *amqp.ImportCompletedMessage) error {
	job, _, err := w.storage.GetImportJob(ctx, msg.JobID)
	if errors.Is(err, storage.ErrNotFound) {
		// The job row is written before the message is published, so an
		// unknown ID means a bad message, not a race. Drop it.
		slog.WarnContext(ctx, "Import job not found, dropping message", "job_id", msg.JobID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get import job %s: %w", msg.JobID, err)
	}

	ref, err := w.sheets.AppendAuditEntry(ctx, job)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	slog.InfoContext(ctx, "Import job mirrored to audit sheet",
		"job_id", job.ID,
		"filename", job.Filename,
		"sheets_ref", ref)

	return nil
}
