package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"opex/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ExistingUIDs snapshots every persisted line-item UID. Dry runs check rows
// against this set; commits rely on the UNIQUE constraint instead, so the
// snapshot being stale between the two is harmless.
func (r *SQLiteRepository) ExistingUIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT uid FROM line_items`)
	if err != nil {
		return nil, fmt.Errorf("query uids: %w", err)
	}
	defer rows.Close()

	uids := make(map[string]struct{})
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan uid: %w", err)
		}
		uids[uid] = struct{}{}
	}
	return uids, rows.Err()
}

const insertLineItem = `
INSERT INTO line_items (
    uid, parent_uid, description, tower, budget_head, vendor,
    start_date, end_date, renewal_date, contract_id, po_entity,
    allocation_basis, allocation_type, service_type, initiative_type,
    priority, total, months, custom_fields, created_by
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(uid) DO NOTHING`

// CommitImport persists the accepted records and the job's audit row in one
// transaction. The UNIQUE constraint on uid is the final authority on
// duplicates: a record whose insert affects zero rows lost a race since
// validation and is demoted to the rejected list rather than failing the
// commit. Returns the job as persisted, with counts reflecting demotions.
func (r *SQLiteRepository) CommitImport(ctx context.Context, job core.ImportJob, accepted []core.NormalizedRecord, rejected []core.RejectedRow) (core.ImportJob, []core.RejectedRow, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.ImportJob{}, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertLineItem)
	if err != nil {
		return core.ImportJob{}, nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	allRejected := append([]core.RejectedRow(nil), rejected...)
	inserted := 0
	for _, rec := range accepted {
		months, err := json.Marshal(rec.Months)
		if err != nil {
			return core.ImportJob{}, nil, fmt.Errorf("marshal months: %w", err)
		}
		custom := []byte("{}")
		if len(rec.CustomFields) > 0 {
			if custom, err = json.Marshal(rec.CustomFields); err != nil {
				return core.ImportJob{}, nil, fmt.Errorf("marshal custom fields: %w", err)
			}
		}
		res, err := stmt.ExecContext(ctx,
			rec.UID, rec.ParentUID, rec.Description, rec.Tower, rec.BudgetHead, rec.Vendor,
			dateText(rec.StartDate), dateText(rec.EndDate), dateText(rec.RenewalDate),
			rec.ContractID, rec.POEntity,
			rec.AllocationBasis, rec.AllocationType, rec.ServiceType, rec.InitiativeType,
			rec.Priority, rec.Total, string(months), string(custom), job.UserName)
		if err != nil {
			return core.ImportJob{}, nil, fmt.Errorf("insert line item %s: %w", rec.UID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return core.ImportJob{}, nil, fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			allRejected = append(allRejected, core.RejectedRow{
				RowIndex: rec.RowIndex,
				UID:      rec.UID,
				Errors:   []string{"duplicate UID"},
			})
			continue
		}
		inserted++
	}

	job.AcceptedRows = inserted
	job.RejectedRows = len(allRejected)
	job.Status = core.JobCompleted
	job.CreatedAt = time.Now().UTC()

	detail, err := json.Marshal(allRejected)
	if err != nil {
		return core.ImportJob{}, nil, fmt.Errorf("marshal rejected detail: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO import_jobs (id, user_name, filename, import_type, total_rows,
		    accepted_rows, rejected_rows, status, failure_reason, rejected_detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.UserName, job.Filename, job.ImportType, job.TotalRows,
		job.AcceptedRows, job.RejectedRows, job.Status, job.FailureReason,
		string(detail), job.CreatedAt)
	if err != nil {
		return core.ImportJob{}, nil, fmt.Errorf("insert import job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.ImportJob{}, nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Import committed",
		"job_id", job.ID,
		"filename", job.Filename,
		"accepted", job.AcceptedRows,
		"rejected", job.RejectedRows)

	return job, allRejected, nil
}

// RecordFailedImport writes a Failed audit row for a commit that never got as
// far as inserting line items, such as an unreadable file on re-validation.
func (r *SQLiteRepository) RecordFailedImport(ctx context.Context, job core.ImportJob, reason string) error {
	job.Status = core.JobFailed
	job.FailureReason = reason
	job.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO import_jobs (id, user_name, filename, import_type, total_rows,
		    accepted_rows, rejected_rows, status, failure_reason, rejected_detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, '[]', ?)`,
		job.ID, job.UserName, job.Filename, job.ImportType, job.TotalRows,
		job.AcceptedRows, job.RejectedRows, job.Status, job.FailureReason, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert failed import job: %w", err)
	}

	slog.WarnContext(ctx, "Import recorded as failed",
		"job_id", job.ID, "filename", job.Filename, "reason", reason)
	return nil
}

// importHistoryLimit caps the history listing to the most recent commits.
const importHistoryLimit = 50

func (r *SQLiteRepository) ListImportJobs(ctx context.Context) ([]core.ImportJob, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_name, filename, import_type, total_rows, accepted_rows,
		    rejected_rows, status, failure_reason, created_at
		FROM import_jobs
		ORDER BY created_at DESC, id
		LIMIT ?`, importHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("query import jobs: %w", err)
	}
	defer rows.Close()

	jobs := []core.ImportJob{}
	for rows.Next() {
		var j core.ImportJob
		if err := rows.Scan(&j.ID, &j.UserName, &j.Filename, &j.ImportType,
			&j.TotalRows, &j.AcceptedRows, &j.RejectedRows,
			&j.Status, &j.FailureReason, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan import job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

var ErrNotFound = errors.New("not found")

// GetImportJob returns one job with its per-row rejection detail.
func (r *SQLiteRepository) GetImportJob(ctx context.Context, id string) (core.ImportJob, []core.RejectedRow, error) {
	var j core.ImportJob
	var detail string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_name, filename, import_type, total_rows, accepted_rows,
		    rejected_rows, status, failure_reason, rejected_detail, created_at
		FROM import_jobs WHERE id = ?`, id).
		Scan(&j.ID, &j.UserName, &j.Filename, &j.ImportType,
			&j.TotalRows, &j.AcceptedRows, &j.RejectedRows,
			&j.Status, &j.FailureReason, &detail, &j.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ImportJob{}, nil, ErrNotFound
	}
	if err != nil {
		return core.ImportJob{}, nil, fmt.Errorf("get import job: %w", err)
	}

	var rejected []core.RejectedRow
	if err := json.Unmarshal([]byte(detail), &rejected); err != nil {
		return core.ImportJob{}, nil, fmt.Errorf("unmarshal rejected detail: %w", err)
	}
	return j, rejected, nil
}

func (r *SQLiteRepository) ListLineItems(ctx context.Context) ([]core.NormalizedRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT uid, parent_uid, description, tower, budget_head, vendor,
		    start_date, end_date, renewal_date, contract_id, po_entity,
		    allocation_basis, allocation_type, service_type, initiative_type,
		    priority, total, months, custom_fields
		FROM line_items
		ORDER BY uid`)
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	items := []core.NormalizedRecord{}
	for rows.Next() {
		var rec core.NormalizedRecord
		var start, end, renewal, months, custom string
		if err := rows.Scan(&rec.UID, &rec.ParentUID, &rec.Description, &rec.Tower,
			&rec.BudgetHead, &rec.Vendor, &start, &end, &renewal,
			&rec.ContractID, &rec.POEntity,
			&rec.AllocationBasis, &rec.AllocationType, &rec.ServiceType,
			&rec.InitiativeType, &rec.Priority, &rec.Total, &months, &custom); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		if rec.StartDate, err = parseDateText(start); err != nil {
			return nil, fmt.Errorf("line item %s start_date: %w", rec.UID, err)
		}
		if rec.EndDate, err = parseDateText(end); err != nil {
			return nil, fmt.Errorf("line item %s end_date: %w", rec.UID, err)
		}
		if rec.RenewalDate, err = parseDateText(renewal); err != nil {
			return nil, fmt.Errorf("line item %s renewal_date: %w", rec.UID, err)
		}
		if err := json.Unmarshal([]byte(months), &rec.Months); err != nil {
			return nil, fmt.Errorf("line item %s months: %w", rec.UID, err)
		}
		if custom != "" && custom != "{}" {
			if err := json.Unmarshal([]byte(custom), &rec.CustomFields); err != nil {
				return nil, fmt.Errorf("line item %s custom fields: %w", rec.UID, err)
			}
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) ListAllocationRows(ctx context.Context) ([]core.AllocationRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT service_uid, basis, total_count, counts
		FROM allocation_rows
		ORDER BY service_uid`)
	if err != nil {
		return nil, fmt.Errorf("query allocation rows: %w", err)
	}
	defer rows.Close()

	out := []core.AllocationRow{}
	for rows.Next() {
		var a core.AllocationRow
		var counts string
		if err := rows.Scan(&a.ServiceUID, &a.Basis, &a.TotalCount, &counts); err != nil {
			return nil, fmt.Errorf("scan allocation row: %w", err)
		}
		if err := json.Unmarshal([]byte(counts), &a.Counts); err != nil {
			return nil, fmt.Errorf("allocation row %s counts: %w", a.ServiceUID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const upsertAllocationRow = `
INSERT INTO allocation_rows (service_uid, basis, total_count, counts, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(service_uid) DO UPDATE SET
    basis = excluded.basis,
    total_count = excluded.total_count,
    counts = excluded.counts,
    updated_at = excluded.updated_at`

func (r *SQLiteRepository) UpsertAllocationRow(ctx context.Context, row core.AllocationRow) error {
	counts, err := json.Marshal(row.Counts)
	if err != nil {
		return fmt.Errorf("marshal counts: %w", err)
	}
	_, err = r.db.ExecContext(ctx, upsertAllocationRow,
		row.ServiceUID, row.Basis, row.TotalCount, string(counts), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert allocation row %s: %w", row.ServiceUID, err)
	}
	return nil
}

// ReplaceAllocationRows upserts every given row in one transaction. Services
// absent from the input keep their stored rows.
func (r *SQLiteRepository) ReplaceAllocationRows(ctx context.Context, rows []core.AllocationRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertAllocationRow)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, row := range rows {
		counts, err := json.Marshal(row.Counts)
		if err != nil {
			return fmt.Errorf("marshal counts: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, row.ServiceUID, row.Basis, row.TotalCount, string(counts), now); err != nil {
			return fmt.Errorf("upsert allocation row %s: %w", row.ServiceUID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Allocation rows replaced", "count", len(rows))
	return nil
}

// Rates loads the currency multiplier table.
func (r *SQLiteRepository) Rates(ctx context.Context) (core.RateTable, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, rate FROM currency_rates`)
	if err != nil {
		return nil, fmt.Errorf("query currency rates: %w", err)
	}
	defer rows.Close()

	table := core.RateTable{}
	for rows.Next() {
		var code string
		var rate float64
		if err := rows.Scan(&code, &rate); err != nil {
			return nil, fmt.Errorf("scan currency rate: %w", err)
		}
		table[code] = rate
	}
	return table, rows.Err()
}

func dateText(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func parseDateText(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: t}, nil
}
