package services

import (
	"context"

	"github.com/sjperalta/village-settlement-api/internal/models"
	"github.com/sjperalta/village-settlement-api/internal/repository"
)

type requestMetaKey struct{}

type requestMeta struct {
	ip        string
	userAgent string
}

// WithRequestMeta attaches the caller's address and user agent so audit
// entries written deeper in the call can record them.
func WithRequestMeta(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, requestMeta{ip: ip, userAgent: userAgent})
}

func requestMetaFrom(ctx context.Context) requestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(requestMeta)
	return meta
}

// AuditService records who did what. Entries are written through the
// repository passed in, so they commit or roll back with the change itself.
type AuditService struct {
	repos *repository.Repositories
}

func NewAuditService(repos *repository.Repositories) *AuditService {
	return &AuditService{repos: repos}
}

// Log records an audit entry using repo, which may be transaction-bound.
func (s *AuditService) Log(ctx context.Context, repo repository.AuditRepository, actorID uint, action, entity string, entityID uint, details string) error {
	if repo == nil {
		repo = s.repos.Audit
	}
	meta := requestMetaFrom(ctx)
	return repo.Create(ctx, &models.AuditLog{
		ActorID:   actorID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		IPAddress: meta.ip,
		UserAgent: meta.userAgent,
	})
}

// List retrieves audit logs with filters
func (s *AuditService) List(ctx context.Context, query *repository.ListQuery) ([]models.AuditLog, int64, error) {
	return s.repos.Audit.List(ctx, query)
}
