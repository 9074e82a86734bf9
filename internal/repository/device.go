package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/omnipushdigital/smartretail/internal/database"
	"github.com/omnipushdigital/smartretail/internal/model"
)

type DeviceRepository interface {
	FindByCode(ctx context.Context, code string) (*model.Device, error)
	FindByID(ctx context.Context, id string) (*model.Device, error)
	Create(ctx context.Context, params model.CreateDeviceParams) (*model.Device, error)
	IssuePin(ctx context.Context, deviceID, pin string, expiresAt time.Time) (*model.Device, error)
	ClaimPin(ctx context.Context, pin, secret, defaultRoleID string) (*model.Device, error)
	UpdateLastSeen(ctx context.Context, deviceCode string) error
	Deactivate(ctx context.Context, deviceID string) error
	ExpirePins(ctx context.Context) (int64, error)
	ListByTenant(ctx context.Context, tenantID string) ([]model.Device, error)
}

type deviceRepo struct {
	db database.DBTX
}

func NewDeviceRepository(db database.DBTX) DeviceRepository {
	return &deviceRepo{db: db}
}

func (r *deviceRepo) FindByCode(ctx context.Context, code string) (*model.Device, error) {
	var d model.Device
	err := r.db.GetContext(ctx, &d, `
		SELECT * FROM devices WHERE device_code = $1
	`, code)
	return HandleNotFound(&d, err)
}

func (r *deviceRepo) FindByID(ctx context.Context, id string) (*model.Device, error) {
	var d model.Device
	err := r.db.GetContext(ctx, &d, `
		SELECT * FROM devices WHERE id = $1
	`, id)
	return HandleNotFound(&d, err)
}

func (r *deviceRepo) Create(ctx context.Context, params model.CreateDeviceParams) (*model.Device, error) {
	var d model.Device
	err := r.db.GetContext(ctx, &d, `
		INSERT INTO devices (id, tenant_id, device_code, pairing_state, pairing_pin, pairing_expires_at)
		VALUES ($1, $2, $3, 'pin_issued', $4, $5)
		RETURNING *
	`, uuid.NewString(), params.TenantID, params.DeviceCode, params.PairingPin, params.PairingExpiresAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// IssuePin replaces any outstanding pin. The existing secret is left intact
// so devices that are already playing keep working; only newly issued pins
// gate newly issued secrets.
func (r *deviceRepo) IssuePin(ctx context.Context, deviceID, pin string, expiresAt time.Time) (*model.Device, error) {
	var d model.Device
	err := r.db.GetContext(ctx, &d, `
		UPDATE devices SET
			pairing_pin = $2,
			pairing_expires_at = $3,
			pairing_state = 'pin_issued',
			updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, deviceID, pin, expiresAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ClaimPin is the single atomic claim statement: the expiry check, the pin
// clearing and the secret installation happen in one UPDATE so two concurrent
// claims of the same pin cannot both succeed. Returns nil when no live pin
// matched. An empty defaultRoleID leaves role_id NULL, so a tenant without a
// seeded default role still pairs devices; they sit in standby until a role
// is assigned.
func (r *deviceRepo) ClaimPin(ctx context.Context, pin, secret, defaultRoleID string) (*model.Device, error) {
	var d model.Device
	err := r.db.GetContext(ctx, &d, `
		UPDATE devices SET
			device_secret = $2,
			active = TRUE,
			pairing_state = 'paired',
			pairing_pin = NULL,
			pairing_expires_at = NULL,
			role_id = COALESCE(role_id, NULLIF($3, '')),
			updated_at = NOW()
		WHERE pairing_pin = $1
		  AND pairing_state = 'pin_issued'
		  AND pairing_expires_at > NOW()
		RETURNING *
	`, pin, secret, defaultRoleID)
	return HandleNotFound(&d, err)
}

func (r *deviceRepo) UpdateLastSeen(ctx context.Context, deviceCode string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE devices SET last_seen_at = NOW() WHERE device_code = $1
	`, deviceCode)
	return err
}

func (r *deviceRepo) Deactivate(ctx context.Context, deviceID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE devices SET active = FALSE, updated_at = NOW() WHERE id = $1
	`, deviceID)
	return err
}

// ExpirePins clears pins past their expiry. A paired device falls back to
// the paired state, an unclaimed one back to unpaired.
func (r *deviceRepo) ExpirePins(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			pairing_pin = NULL,
			pairing_expires_at = NULL,
			pairing_state = CASE WHEN device_secret IS NOT NULL THEN 'paired' ELSE 'unpaired' END,
			updated_at = NOW()
		WHERE pairing_state = 'pin_issued' AND pairing_expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *deviceRepo) ListByTenant(ctx context.Context, tenantID string) ([]model.Device, error) {
	var devices []model.Device
	err := r.db.SelectContext(ctx, &devices, `
		SELECT * FROM devices WHERE tenant_id = $1 ORDER BY device_code
	`, tenantID)
	return devices, err
}
