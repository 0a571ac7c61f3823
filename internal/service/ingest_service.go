package service

import (
	"context"

	"github.com/mbeoliero/kit/log"
	"github.com/opencrmhq/chatbridge/internal/entity"
	"github.com/opencrmhq/chatbridge/internal/repository"
	"github.com/opencrmhq/chatbridge/internal/sync"
	"github.com/opencrmhq/chatbridge/pkg/apikey"
)

// IngestService is the webhook fast path: resolve the tenant, normalize
// the payload, apply through the Writer, return. Everything below the
// endpoint boundary is absorbed and logged; the reconciliation sweep is
// the correctness backstop for anything lost here.
type IngestService struct {
	tenantRepo *repository.TenantRepo
	writer     *sync.Writer
	health     *sync.WebhookHealth
}

// NewIngestService creates a new IngestService
func NewIngestService(tenantRepo *repository.TenantRepo, writer *sync.Writer, health *sync.WebhookHealth) *IngestService {
	return &IngestService{
		tenantRepo: tenantRepo,
		writer:     writer,
		health:     health,
	}
}

// ResolveTenant maps a webhook URL token to its tenant. Returns nil when
// the token is unknown.
func (s *IngestService) ResolveTenant(ctx context.Context, webhookToken string) (*entity.Tenant, error) {
	return s.tenantRepo.GetByWebhookTokenHash(ctx, apikey.HashKey(webhookToken))
}

// Ingest processes one raw webhook payload for a tenant. The returned
// outcome is observational only; callers acknowledge the sender either way.
func (s *IngestService) Ingest(ctx context.Context, tenantId int64, raw []byte) (entity.WriteOutcome, error) {
	delta, err := sync.Normalize(tenantId, raw)
	if err != nil {
		s.health.Record(true)
		log.CtxWarn(ctx, "webhook payload discarded: tenant_id=%d, error=%v", tenantId, err)
		return 0, err
	}
	if delta == nil {
		// Irrelevant event type; fine, and not counted as a failure
		s.health.Record(false)
		return entity.OutcomeIgnored, nil
	}

	outcome, err := s.writer.Apply(ctx, delta)
	if err != nil {
		s.health.Record(true)
		log.CtxError(ctx, "webhook apply failed: tenant_id=%d, remote_conversation_id=%d, error=%v",
			tenantId, delta.RemoteConversationId, err)
		return 0, err
	}

	s.health.Record(false)
	return outcome, nil
}

// Health reports the rolling webhook health window
func (s *IngestService) Health() sync.HealthStatus {
	return s.health.Status()
}
