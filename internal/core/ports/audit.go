package ports

import (
	"context"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
)

// AuditService defines the interface for logging audit events.
type AuditService interface {
	// Log records an action.
	Log(ctx context.Context, action domain.AuditAction, target, details string) error
	// GetLogs retrieves at most limit logs; it offers no other filtering.
	GetLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)
}

// AuditRepository defines the persistence for audit logs.
type AuditRepository interface {
	SaveAuditLog(ctx context.Context, log domain.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)
}
