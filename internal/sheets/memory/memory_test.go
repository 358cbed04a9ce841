package memory

import (
	"context"
	"testing"

	"opex/internal/core"
)

func TestStoreAppendAuditEntry(t *testing.T) {
	s := New()

	ref, err := s.AppendAuditEntry(context.Background(), core.ImportJob{ID: "job-1"})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	ref, err = s.AppendAuditEntry(context.Background(), core.ImportJob{ID: "job-2"})
	if err != nil || ref != "mem:2" {
		t.Fatalf("unexpected second append: ref=%q err=%v", ref, err)
	}

	entries := s.Entries()
	if len(entries) != 2 || entries[0].ID != "job-1" || entries[1].ID != "job-2" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
