package model

import (
	"time"
)

type Layout struct {
	ID         string    `db:"id" json:"id"`
	TenantID   string    `db:"tenant_id" json:"tenantId"`
	Name       string    `db:"name" json:"name"`
	TemplateID string    `db:"template_id" json:"templateId"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// LayoutRegion assigns a playlist to one region of a layout's template.
// A region with no playlist assigned yields no content in the manifest.
type LayoutRegion struct {
	ID         string  `db:"id" json:"id"`
	LayoutID   string  `db:"layout_id" json:"layoutId"`
	RegionKey  string  `db:"region_key" json:"regionKey"`
	PlaylistID *string `db:"playlist_id" json:"playlistId,omitempty"`
	SortOrder  int     `db:"sort_order" json:"sortOrder"`
}

type Playlist struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenantId"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// PlaylistItem is one entry of an ordered playlist. SortOrder is the ordering
// key and is not required to be contiguous. DurationSeconds, when set,
// overrides the player's per-type default.
type PlaylistItem struct {
	ID              string    `db:"id" json:"id"`
	PlaylistID      string    `db:"playlist_id" json:"playlistId"`
	MediaID         *string   `db:"media_id" json:"mediaId,omitempty"`
	Type            MediaType `db:"type" json:"type"`
	WebURL          *string   `db:"web_url" json:"webUrl,omitempty"`
	DurationSeconds *int      `db:"duration_seconds" json:"durationSeconds,omitempty"`
	SortOrder       int       `db:"sort_order" json:"sortOrder"`
}

type MediaAsset struct {
	ID             string    `db:"id" json:"id"`
	TenantID       string    `db:"tenant_id" json:"tenantId"`
	Type           MediaType `db:"type" json:"type"`
	StorageKey     *string   `db:"storage_key" json:"storageKey,omitempty"`
	ExternalURL    *string   `db:"external_url" json:"externalUrl,omitempty"`
	ChecksumSHA256 *string   `db:"checksum_sha256" json:"checksumSha256,omitempty"`
	Bytes          *int64    `db:"bytes" json:"bytes,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// Bundle is an immutable named snapshot of the media referenced by a
// published layout, used for version reporting and rollback only.
type Bundle struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenantId"`
	Version   string    `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
