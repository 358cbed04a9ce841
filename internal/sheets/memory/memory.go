package memory

import (
	"context"
	"fmt"
	"sync"

	"opex/internal/core"
)

// Store is an in-memory AuditWriter for local development and tests, used
// when no Google credentials are configured.
type Store struct {
	mu      sync.Mutex
	entries []core.ImportJob
}

func New() *Store {
	return &Store{}
}

// AppendAuditEntry records the job and returns a synthetic row reference.
func (s *Store) AppendAuditEntry(_ context.Context, job core.ImportJob) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, job)
	return fmt.Sprintf("mem:%d", len(s.entries)), nil
}

// Entries returns a copy of everything appended so far.
func (s *Store) Entries() []core.ImportJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ImportJob(nil), s.entries...)
}
