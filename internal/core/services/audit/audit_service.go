// Package audit records the lifecycle events of the two long-lived
// producers (C3's SSH driver, the gpsd client) to a repository, independent
// of the in-memory consolidation table. There is no authenticated-user
// concept in this scope, so every entry is attributed to the component that
// raised it rather than to a logged-in operator.
package audit

import (
	"context"

	"github.com/lcalzada-xor/wmap/internal/core/domain"
	"github.com/lcalzada-xor/wmap/internal/core/ports"
)

// systemActor is the fixed UserID/Username every entry is attributed to:
// domain.AuditLog keeps its user-attribution shape, but nothing in this
// scope authenticates a human operator.
const systemActor = "system"

type AuditService struct {
	repo ports.AuditRepository
}

var _ ports.AuditService = (*AuditService)(nil)

func NewAuditService(repo ports.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Log records one lifecycle event. target names the component that raised
// it (e.g. an SSH driver's Config.Name, or "gpsd"); details carries whatever
// free-form context the caller has (a ret code, a fix mode, a host-key
// fingerprint decision).
func (s *AuditService) Log(ctx context.Context, action domain.AuditAction, target, details string) error {
	entry, err := domain.NewAuditLog(systemActor, systemActor, action, target, details, "")
	if err != nil {
		return err
	}

	return s.repo.SaveAuditLog(ctx, *entry)
}

func (s *AuditService) GetLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	return s.repo.ListAuditLogs(ctx, limit)
}
