package repository

import (
	"context"

	"github.com/omnipushdigital/smartretail/internal/database"
	"github.com/omnipushdigital/smartretail/internal/model"
)

type RoleRepository interface {
	FindByID(ctx context.Context, id string) (*model.Role, error)
	FindDefault(ctx context.Context, tenantID string) (*model.Role, error)
}

type roleRepo struct {
	db database.DBTX
}

func NewRoleRepository(db database.DBTX) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) FindByID(ctx context.Context, id string) (*model.Role, error) {
	var role model.Role
	err := r.db.GetContext(ctx, &role, `
		SELECT * FROM roles WHERE id = $1
	`, id)
	return HandleNotFound(&role, err)
}

func (r *roleRepo) FindDefault(ctx context.Context, tenantID string) (*model.Role, error) {
	var role model.Role
	err := r.db.GetContext(ctx, &role, `
		SELECT * FROM roles WHERE tenant_id = $1 AND is_default ORDER BY created_at LIMIT 1
	`, tenantID)
	return HandleNotFound(&role, err)
}
