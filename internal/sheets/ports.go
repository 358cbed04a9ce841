package sheets

import (
	"context"

	"opex/internal/core"
)

// Ports for outbound adapters.
type (
	// AuditWriter records a completed import job on an external audit trail.
	AuditWriter interface {
		AppendAuditEntry(ctx context.Context, job core.ImportJob) (rowRef string, err error)
	}
)
