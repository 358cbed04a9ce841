package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"opex/internal/amqp"
	"opex/internal/cache"
	"opex/internal/core"
	"opex/internal/importer"
	"opex/internal/storage"
)

// DryRunResult is what a validation pass returns to the caller: the resolved
// header mapping plus the full report, never any persisted state.
type DryRunResult struct {
	Mapping importer.HeaderMapping `json:"mapping"`
	Report  core.ImportReport      `json:"report"`
}

// CommitResult is the outcome of a persisting import: the recorded job plus
// the final report. The report reflects what storage actually did, so a row
// demoted by the uniqueness constraint shows up rejected, not accepted.
type CommitResult struct {
	Job    core.ImportJob    `json:"job"`
	Report core.ImportReport `json:"report"`
}

// ImportService orchestrates spreadsheet imports across the normalizer,
// SQLite and AMQP. Dry-run reports are cached so repeated validation of the
// same file with the same mapping skips the parse.
type ImportService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	dryRuns    *cache.LRUCache[DryRunResult]
}

func NewImportService(repo *storage.SQLiteRepository, amqpClient *amqp.Client) *ImportService {
	return &ImportService{
		storage:    repo,
		amqpClient: amqpClient,
		dryRuns:    cache.NewLRUCache[DryRunResult](64, 5*time.Minute),
	}
}

// DryRunCache exposes the report cache for lifecycle management.
func (s *ImportService) DryRunCache() cache.Cleaner {
	return s.dryRuns
}

// DryRun validates the uploaded file without writing anything. filename picks
// the parser (csv or xlsx), override carries the caller's mapping
// corrections keyed by raw header.
func (s *ImportService) DryRun(ctx context.Context, filename string, data []byte, override map[string]core.Field) (DryRunResult, error) {
	key := dryRunKey(data, override)
	if cached, ok := s.dryRuns.Get(key); ok {
		slog.InfoContext(ctx, "Dry run served from cache", "filename", filename)
		return cached, nil
	}

	result, err := s.validate(ctx, filename, data, override)
	if err != nil {
		return DryRunResult{}, err
	}

	s.dryRuns.Set(key, result)
	slog.InfoContext(ctx, "Dry run completed",
		"filename", filename,
		"total_rows", result.Report.TotalRows,
		"accepted", len(result.Report.Accepted),
		"rejected", len(result.Report.Rejected))
	return result, nil
}

// Commit re-validates the file server-side and persists the accepted rows.
// The client's earlier dry-run report is advisory only; whatever it claimed,
// the commit decides from the bytes it was given. Input-shape errors (an
// unreadable file, no usable header) abort before any job exists; once row
// processing has started, a failure to persist leaves a Failed job behind
// for the audit trail.
func (s *ImportService) Commit(ctx context.Context, userName, filename, importType string, data []byte, override map[string]core.Field) (CommitResult, error) {
	job := core.ImportJob{
		ID:         uuid.NewString(),
		UserName:   userName,
		Filename:   filename,
		ImportType: importType,
	}

	result, err := s.validate(ctx, filename, data, override)
	if err != nil {
		if !isInputShapeError(err) {
			s.recordFailure(ctx, job, err)
		}
		return CommitResult{}, err
	}

	job.TotalRows = result.Report.TotalRows
	saved, rejected, err := s.storage.CommitImport(ctx, job, result.Report.Accepted, result.Report.Rejected)
	if err != nil {
		err = fmt.Errorf("commit import: %w", err)
		s.recordFailure(ctx, job, err)
		return CommitResult{}, err
	}

	if err := s.publishCompleted(ctx, saved.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish import completed message",
			"job_id", saved.ID, "error", err)
		// Don't fail the request, the import is committed locally
	}

	report := core.ImportReport{
		TotalRows: saved.TotalRows,
		Accepted:  withoutDemoted(result.Report.Accepted, rejected),
		Rejected:  rejected,
	}
	return CommitResult{Job: saved, Report: report}, nil
}

// withoutDemoted drops records the commit transaction demoted to rejected,
// matched by row index.
func withoutDemoted(accepted []core.NormalizedRecord, rejected []core.RejectedRow) []core.NormalizedRecord {
	demoted := make(map[int]bool, len(rejected))
	for _, r := range rejected {
		demoted[r.RowIndex] = true
	}
	kept := make([]core.NormalizedRecord, 0, len(accepted))
	for _, rec := range accepted {
		if !demoted[rec.RowIndex] {
			kept = append(kept, rec)
		}
	}
	return kept
}

// recordFailure writes a Failed job for the audit trail. Best effort: when
// storage itself is down the write fails too, and logging it is all that is
// left to do.
func (s *ImportService) recordFailure(ctx context.Context, job core.ImportJob, cause error) {
	if recErr := s.storage.RecordFailedImport(ctx, job, cause.Error()); recErr != nil {
		slog.ErrorContext(ctx, "Failed to record failed import",
			"job_id", job.ID, "error", recErr)
	}
}

// isInputShapeError reports whether the whole call failed before any row was
// processed. These never create an ImportJob.
func isInputShapeError(err error) bool {
	var unknownField *importer.UnknownFieldError
	return errors.Is(err, core.ErrUnreadableFile) ||
		errors.Is(err, core.ErrNoHeaderRow) ||
		errors.Is(err, core.ErrMissingUID) ||
		errors.As(err, &unknownField)
}

func (s *ImportService) validate(ctx context.Context, filename string, data []byte, override map[string]core.Field) (DryRunResult, error) {
	table, err := importer.ReadTable(filename, bytes.NewReader(data))
	if err != nil {
		return DryRunResult{}, err
	}

	uids, err := s.storage.ExistingUIDs(ctx)
	if err != nil {
		return DryRunResult{}, fmt.Errorf("load existing uids: %w", err)
	}

	mapping, report, err := importer.Run(table, override, importer.UIDSet(uids))
	if err != nil {
		return DryRunResult{}, err
	}
	return DryRunResult{Mapping: mapping, Report: report}, nil
}

// ImportHistory lists the most recent commits, newest first.
func (s *ImportService) ImportHistory(ctx context.Context) ([]core.ImportJob, error) {
	return s.storage.ListImportJobs(ctx)
}

// ImportDetail returns one job with its per-row rejection detail.
func (s *ImportService) ImportDetail(ctx context.Context, id string) (core.ImportJob, []core.RejectedRow, error) {
	return s.storage.GetImportJob(ctx, id)
}

// RejectedCSV renders the job's rejected rows as a downloadable CSV.
func (s *ImportService) RejectedCSV(ctx context.Context, id string) (core.ImportJob, []byte, error) {
	job, rejected, err := s.storage.GetImportJob(ctx, id)
	if err != nil {
		return core.ImportJob{}, nil, err
	}
	return job, importer.RejectedCSV(rejected), nil
}

// ListLineItems returns the committed records. A non-empty currency names
// the denomination of the stored amounts; totals and monthly figures are
// multiplied into the reporting currency using the rate table, with missing
// rates treated as already converted.
func (s *ImportService) ListLineItems(ctx context.Context, currency string) ([]core.NormalizedRecord, error) {
	items, err := s.storage.ListLineItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	if currency == "" || currency == core.ReportingCurrency {
		return items, nil
	}

	rates, err := s.storage.Rates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load currency rates: %w", err)
	}
	for i := range items {
		items[i].Total = rates.Convert(items[i].Total, currency)
		for mon, v := range items[i].Months {
			items[i].Months[mon] = rates.Convert(v, currency)
		}
	}
	return items, nil
}

func (s *ImportService) publishCompleted(ctx context.Context, jobID string) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping import completed message")
		return nil
	}
	return s.amqpClient.PublishImportCompleted(ctx, jobID)
}

// Close closes both storage and AMQP connections.
func (s *ImportService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close import service: %v", errs)
	}

	return nil
}

// dryRunKey fingerprints the file bytes together with the mapping override,
// in a stable field order.
func dryRunKey(data []byte, override map[string]core.Field) string {
	h := sha256.New()
	h.Write(data)

	keys := make([]string, 0, len(override))
	for k := range override {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "|%s=%s", k, override[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}
