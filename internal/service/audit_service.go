package service

import (
	"context"

	"opsconsole/internal/model"
	"opsconsole/internal/repository"
)

type AuditFilter struct {
	EntityKind string
	EntityID   string
	Page       int
	Limit      int
}

// AuditService exposes the audit trail to approvers.
type AuditService interface {
	ListAuditLogs(ctx context.Context, filter AuditFilter) ([]model.AuditLog, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) ListAuditLogs(ctx context.Context, filter AuditFilter) ([]model.AuditLog, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.repo.List(ctx, repository.AuditFilter{
		EntityKind: filter.EntityKind,
		EntityID:   filter.EntityID,
		Page:       filter.Page,
		Limit:      filter.Limit,
	})
}
