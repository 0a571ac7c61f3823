package sync

import (
	"context"
	"errors"
	"strings"

	"github.com/mbeoliero/kit/log"
	"github.com/opencrmhq/chatbridge/internal/entity"
	"github.com/opencrmhq/chatbridge/internal/platform"
	"github.com/opencrmhq/chatbridge/pkg/errcode"
)

// LabelAPI is the slice of the platform API the label syncer pushes to
type LabelAPI interface {
	ListLabels(ctx context.Context, cred platform.Credential) ([]*platform.RemoteLabel, error)
	CreateLabel(ctx context.Context, cred platform.Credential, title, description, color string) (*platform.RemoteLabel, error)
	UpdateLabel(ctx context.Context, cred platform.Credential, labelId int64, color string) error
}

// LabelSyncResult counts what a label sync did
type LabelSyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// LabelSyncer pushes local pipeline stages to the remote platform as
// labels, keyed by slug. One-directional: nothing is read back into the
// mirror. Idempotent by find-then-create-or-update.
type LabelSyncer struct {
	api     LabelAPI
	stages  StageSource
	tenants TenantDirectory
}

// StageSource is the slice of stage storage the label syncer reads.
// Backed by repository.StageRepo in production.
type StageSource interface {
	ListByTenant(ctx context.Context, tenantId int64) ([]*entity.Stage, error)
}

// NewLabelSyncer creates a new LabelSyncer
func NewLabelSyncer(api LabelAPI, stages StageSource, tenants TenantDirectory) *LabelSyncer {
	return &LabelSyncer{api: api, stages: stages, tenants: tenants}
}

// SyncLabels find-or-creates a remote label per local stage and corrects
// drifted colors. A concurrent double invocation can at worst create one
// duplicate label in the lookup/create window; the next sync treats the
// existing label as found, so the race self-corrects.
func (s *LabelSyncer) SyncLabels(ctx context.Context, tenantId int64) (*LabelSyncResult, error) {
	tenant, err := s.tenants.GetById(ctx, tenantId)
	if err != nil {
		return nil, errcode.ErrInternalServer.Wrap(err)
	}
	if tenant == nil {
		return nil, errcode.ErrTenantNotFound
	}

	cred := platform.Credential{
		AccountId: tenant.PlatformAccountId,
		Token:     tenant.PlatformToken,
	}

	stages, err := s.stages.ListByTenant(ctx, tenantId)
	if err != nil {
		return nil, errcode.ErrInternalServer.Wrap(err)
	}

	remoteLabels, err := s.api.ListLabels(ctx, cred)
	if err != nil {
		return nil, errcode.ErrPlatformFailed.Wrap(err)
	}

	bySlug := make(map[string]*platform.RemoteLabel, len(remoteLabels))
	for _, label := range remoteLabels {
		bySlug[strings.ToLower(label.Title)] = label
	}

	result := &LabelSyncResult{}
	for _, stage := range stages {
		label, exists := bySlug[strings.ToLower(stage.Slug)]
		if !exists {
			if _, err := s.api.CreateLabel(ctx, cred, stage.Slug, stage.Name, stage.Color); err != nil {
				// "already exists" from a racing sync counts as success
				if isConflict(err) {
					continue
				}
				log.CtxError(ctx, "label create failed: tenant_id=%d, slug=%s, error=%v", tenantId, stage.Slug, err)
				return result, errcode.ErrPlatformFailed.Wrap(err)
			}
			result.Created++
			continue
		}

		if !strings.EqualFold(label.Color, stage.Color) {
			if err := s.api.UpdateLabel(ctx, cred, label.Id, stage.Color); err != nil {
				log.CtxError(ctx, "label update failed: tenant_id=%d, slug=%s, error=%v", tenantId, stage.Slug, err)
				return result, errcode.ErrPlatformFailed.Wrap(err)
			}
			result.Updated++
		}
	}

	return result, nil
}

// isConflict reports whether the platform rejected a create because the
// label already exists
func isConflict(err error) bool {
	var perr *platform.Error
	if !errors.As(err, &perr) {
		return false
	}
	return perr.StatusCode == 409 || perr.StatusCode == 422
}
