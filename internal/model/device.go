package model

import (
	"time"
)

type Device struct {
	ID               string       `db:"id" json:"id"`
	TenantID         string       `db:"tenant_id" json:"tenantId"`
	DeviceCode       string       `db:"device_code" json:"deviceCode"`
	Name             *string      `db:"name" json:"name,omitempty"`
	DeviceSecret     *string      `db:"device_secret" json:"-"`
	StoreID          *string      `db:"store_id" json:"storeId,omitempty"`
	RoleID           *string      `db:"role_id" json:"roleId,omitempty"`
	Active           bool         `db:"active" json:"active"`
	PairingState     PairingState `db:"pairing_state" json:"pairingState"`
	PairingPin       *string      `db:"pairing_pin" json:"-"`
	PairingExpiresAt *time.Time   `db:"pairing_expires_at" json:"-"`
	Orientation      Orientation  `db:"orientation" json:"orientation"`
	Resolution       *string      `db:"resolution" json:"resolution,omitempty"`
	LastSeenAt       *time.Time   `db:"last_seen_at" json:"lastSeenAt,omitempty"`
	CreatedAt        time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updatedAt"`
}

type CreateDeviceParams struct {
	TenantID         string
	DeviceCode       string
	PairingPin       string
	PairingExpiresAt time.Time
}

type Store struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenantId"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type Role struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenantId"`
	Name      string    `db:"name" json:"name"`
	IsDefault bool      `db:"is_default" json:"isDefault"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
