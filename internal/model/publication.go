package model

import (
	"time"
)

// Publication binds a layout+bundle to a targeting scope. For a given tenant
// and role, at most one publication may be active per distinct scope target;
// a partial unique index enforces this and Publish swaps rows atomically.
type Publication struct {
	ID          string     `db:"id" json:"id"`
	TenantID    string     `db:"tenant_id" json:"tenantId"`
	RoleID      string     `db:"role_id" json:"roleId"`
	Scope       Scope      `db:"scope" json:"scope"`
	StoreID     *string    `db:"store_id" json:"storeId,omitempty"`
	DeviceID    *string    `db:"device_id" json:"deviceId,omitempty"`
	LayoutID    string     `db:"layout_id" json:"layoutId"`
	BundleID    string     `db:"bundle_id" json:"bundleId"`
	IsActive    bool       `db:"is_active" json:"isActive"`
	PublishedAt time.Time  `db:"published_at" json:"publishedAt"`
	PublishedBy *string    `db:"published_by" json:"publishedBy,omitempty"`
	RetiredAt   *time.Time `db:"retired_at" json:"retiredAt,omitempty"`
}

type CreatePublicationParams struct {
	TenantID    string
	RoleID      string
	Scope       Scope
	StoreID     *string
	DeviceID    *string
	LayoutID    string
	BundleID    string
	PublishedBy *string
}
