package repository

import (
	"context"
	"time"

	"github.com/omnipushdigital/smartretail/internal/database"
	"github.com/omnipushdigital/smartretail/internal/model"
)

type HeartbeatRepository interface {
	Insert(ctx context.Context, params model.InsertHeartbeatParams) (*model.Heartbeat, error)
	LatestByDevice(ctx context.Context, deviceCode string) (*model.Heartbeat, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type heartbeatRepo struct {
	db database.DBTX
}

func NewHeartbeatRepository(db database.DBTX) HeartbeatRepository {
	return &heartbeatRepo{db: db}
}

// Insert appends a liveness row. Heartbeats are never updated in place; the
// latest row per device is the device's current status.
func (r *heartbeatRepo) Insert(ctx context.Context, params model.InsertHeartbeatParams) (*model.Heartbeat, error) {
	var hb model.Heartbeat
	err := r.db.GetContext(ctx, &hb, `
		INSERT INTO heartbeats (device_code, version, status)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.DeviceCode, params.Version, params.Status)
	if err != nil {
		return nil, err
	}
	return &hb, nil
}

func (r *heartbeatRepo) LatestByDevice(ctx context.Context, deviceCode string) (*model.Heartbeat, error) {
	var hb model.Heartbeat
	err := r.db.GetContext(ctx, &hb, `
		SELECT * FROM heartbeats
		WHERE device_code = $1
		ORDER BY reported_at DESC
		LIMIT 1
	`, deviceCode)
	return HandleNotFound(&hb, err)
}

func (r *heartbeatRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM heartbeats WHERE reported_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
