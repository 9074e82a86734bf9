package model

import (
	"time"
)

// Heartbeat rows are append-only; the latest row per device is the device's
// current status.
type Heartbeat struct {
	ID         int64     `db:"id" json:"id"`
	DeviceCode string    `db:"device_code" json:"deviceCode"`
	Version    *string   `db:"version" json:"version,omitempty"`
	Status     *string   `db:"status" json:"status,omitempty"`
	ReportedAt time.Time `db:"reported_at" json:"reportedAt"`
}

type InsertHeartbeatParams struct {
	DeviceCode string
	TenantID   string
	Version    *string
	Status     *string
}
