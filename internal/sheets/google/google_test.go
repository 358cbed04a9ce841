package google

import (
	"context"
	"testing"
	"time"

	"opex/internal/core"
)

func TestAuditRow(t *testing.T) {
	job := core.ImportJob{
		ID:           "job-1",
		UserName:     "priya",
		Filename:     "fy26.xlsx",
		ImportType:   "budgets",
		TotalRows:    10,
		AcceptedRows: 8,
		RejectedRows: 2,
		Status:       core.JobCompleted,
		CreatedAt:    time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC),
	}

	row := auditRow(job)
	if len(row) != 9 {
		t.Fatalf("auditRow length = %d, want 9", len(row))
	}
	if row[0] != "2026-04-01T09:30:00Z" {
		t.Errorf("timestamp = %v", row[0])
	}
	if row[1] != "job-1" || row[3] != "fy26.xlsx" {
		t.Errorf("unexpected identity columns: %v", row)
	}
	if row[5] != 10 || row[6] != 8 || row[7] != 2 {
		t.Errorf("unexpected counts: %v", row)
	}
	if row[8] != "Completed" {
		t.Errorf("status = %v, want Completed", row[8])
	}
}

func TestAppendAuditEntryRequiresService(t *testing.T) {
	c := &Client{spreadsheetID: "x", auditSheet: "Import Audit"}
	if _, err := c.AppendAuditEntry(context.Background(), core.ImportJob{ID: "job-1"}); err == nil {
		t.Error("expected error without initialized service")
	}
}
