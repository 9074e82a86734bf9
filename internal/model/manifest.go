package model

import (
	"time"
)

// Manifest is the self-contained document a player needs to render current
// content without further queries.
type Manifest struct {
	Device          ManifestDevice            `json:"device"`
	Resolved        ResolvedInfo              `json:"resolved"`
	Layout          ManifestLayout            `json:"layout"`
	RegionPlaylists map[string][]ManifestItem `json:"region_playlists"`
	Assets          []ManifestAsset           `json:"assets"`
	PollSeconds     int                       `json:"poll_seconds"`
	GeneratedAt     time.Time                 `json:"generated_at"`
}

type ManifestDevice struct {
	DeviceCode  string      `json:"device_code"`
	Orientation Orientation `json:"orientation"`
	Resolution  *string     `json:"resolution,omitempty"`
}

// ResolvedInfo records which scope matched so players and operators can see
// why a device is showing what it shows.
type ResolvedInfo struct {
	Scope         Scope   `json:"scope"`
	RoleID        string  `json:"role_id"`
	PublicationID string  `json:"publication_id"`
	BundleID      string  `json:"bundle_id"`
	Version       string  `json:"version"`
}

type ManifestLayout struct {
	LayoutID   string           `json:"layout_id"`
	TemplateID string           `json:"template_id"`
	Regions    []ManifestRegion `json:"regions"`
}

type ManifestRegion struct {
	RegionID   string  `json:"region_id"`
	RegionKey  string  `json:"region_key"`
	PlaylistID *string `json:"playlist_id,omitempty"`
}

type ManifestItem struct {
	PlaylistItemID  string    `json:"playlist_item_id"`
	MediaID         *string   `json:"media_id,omitempty"`
	Type            MediaType `json:"type"`
	WebURL          *string   `json:"web_url,omitempty"`
	DurationSeconds *int      `json:"duration_seconds,omitempty"`
	SortOrder       int       `json:"sort_order"`
}

type ManifestAsset struct {
	MediaID        string    `json:"media_id"`
	Type           MediaType `json:"type"`
	URL            string    `json:"url"`
	ChecksumSHA256 *string   `json:"checksum_sha256,omitempty"`
	Bytes          *int64    `json:"bytes,omitempty"`
}

// StandbyInfo is the diagnostic body returned when a device authenticates but
// no publication is active for it. It is deliberately not an opaque error so
// the player can render a meaningful idle screen.
type StandbyInfo struct {
	Standby          bool    `json:"standby"`
	DeviceCode       string  `json:"device_code"`
	TenantID         string  `json:"tenant_id"`
	RoleID           *string `json:"role_id,omitempty"`
	ActiveForRole    int     `json:"active_for_role"`
	PollSeconds      int     `json:"poll_seconds"`
	Reason           string  `json:"reason"`
}
