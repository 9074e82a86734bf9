package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/omnipushdigital/smartretail/internal/database"
	"github.com/omnipushdigital/smartretail/internal/model"
)

type PublicationRepository interface {
	FindActiveByRole(ctx context.Context, tenantID, roleID string) ([]model.Publication, error)
	Create(ctx context.Context, params model.CreatePublicationParams) (*model.Publication, error)
	DeactivateForTarget(ctx context.Context, tenantID, roleID string, scope model.Scope, storeID, deviceID *string) (int64, error)
}

type publicationRepo struct {
	db database.DBTX
}

// NewPublicationRepository accepts a DBTX so the publish path can run the
// deactivate-then-activate swap inside a single transaction.
func NewPublicationRepository(db database.DBTX) PublicationRepository {
	return &publicationRepo{db: db}
}

// FindActiveByRole returns the active publications ordered newest-first so
// callers resolving against a violated uniqueness invariant still pick a
// deterministic (most recently published) row per scope.
func (r *publicationRepo) FindActiveByRole(ctx context.Context, tenantID, roleID string) ([]model.Publication, error) {
	var pubs []model.Publication
	err := r.db.SelectContext(ctx, &pubs, `
		SELECT * FROM publications
		WHERE tenant_id = $1 AND role_id = $2 AND is_active
		ORDER BY published_at DESC
	`, tenantID, roleID)
	return pubs, err
}

func (r *publicationRepo) Create(ctx context.Context, params model.CreatePublicationParams) (*model.Publication, error) {
	var pub model.Publication
	err := r.db.GetContext(ctx, &pub, `
		INSERT INTO publications
			(id, tenant_id, role_id, scope, store_id, device_id, layout_id, bundle_id, is_active, published_at, published_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, NOW(), $9)
		RETURNING *
	`, uuid.NewString(), params.TenantID, params.RoleID, params.Scope, params.StoreID, params.DeviceID,
		params.LayoutID, params.BundleID, params.PublishedBy)
	if err != nil {
		return nil, err
	}
	return &pub, nil
}

// DeactivateForTarget retires the currently active publication for one scope
// target. IS NOT DISTINCT FROM treats NULL target columns as equal, which is
// what GLOBAL rows need.
func (r *publicationRepo) DeactivateForTarget(ctx context.Context, tenantID, roleID string, scope model.Scope, storeID, deviceID *string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE publications SET is_active = FALSE, retired_at = NOW()
		WHERE tenant_id = $1 AND role_id = $2 AND scope = $3
		  AND store_id IS NOT DISTINCT FROM $4
		  AND device_id IS NOT DISTINCT FROM $5
		  AND is_active
	`, tenantID, roleID, scope, storeID, deviceID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
