package database

import (
	"context"
	"fmt"
)

// schema is applied idempotently at startup. The partial unique index on
// publications backstops the publish path: even if the transactional swap is
// bypassed, two active rows for the same scope target cannot coexist.
const schema = `
CREATE TABLE IF NOT EXISTS stores (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS roles (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    is_default BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS devices (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    device_code TEXT NOT NULL,
    name TEXT,
    device_secret TEXT,
    store_id TEXT REFERENCES stores(id),
    role_id TEXT REFERENCES roles(id),
    active BOOLEAN NOT NULL DEFAULT FALSE,
    pairing_state TEXT NOT NULL DEFAULT 'unpaired',
    pairing_pin TEXT,
    pairing_expires_at TIMESTAMPTZ,
    orientation TEXT NOT NULL DEFAULT 'landscape',
    resolution TEXT,
    last_seen_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (tenant_id, device_code)
);

CREATE TABLE IF NOT EXISTS layouts (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    template_id TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS playlists (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS layout_regions (
    id TEXT PRIMARY KEY,
    layout_id TEXT NOT NULL REFERENCES layouts(id) ON DELETE CASCADE,
    region_key TEXT NOT NULL,
    playlist_id TEXT REFERENCES playlists(id),
    sort_order INTEGER NOT NULL DEFAULT 0,
    UNIQUE (layout_id, region_key)
);

CREATE TABLE IF NOT EXISTS media_assets (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    type TEXT NOT NULL,
    storage_key TEXT,
    external_url TEXT,
    checksum_sha256 TEXT,
    bytes BIGINT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS playlist_items (
    id TEXT PRIMARY KEY,
    playlist_id TEXT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
    media_id TEXT REFERENCES media_assets(id),
    type TEXT NOT NULL,
    web_url TEXT,
    duration_seconds INTEGER,
    sort_order INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_playlist_items_playlist
    ON playlist_items(playlist_id, sort_order);

CREATE TABLE IF NOT EXISTS bundles (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    version TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (tenant_id, version)
);

CREATE TABLE IF NOT EXISTS publications (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    role_id TEXT NOT NULL REFERENCES roles(id),
    scope TEXT NOT NULL,
    store_id TEXT REFERENCES stores(id),
    device_id TEXT REFERENCES devices(id),
    layout_id TEXT NOT NULL REFERENCES layouts(id),
    bundle_id TEXT NOT NULL REFERENCES bundles(id),
    is_active BOOLEAN NOT NULL DEFAULT FALSE,
    published_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    published_by TEXT,
    retired_at TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_publications_active_target
    ON publications (tenant_id, role_id, scope, COALESCE(store_id, ''), COALESCE(device_id, ''))
    WHERE is_active;

CREATE INDEX IF NOT EXISTS idx_publications_active_role
    ON publications (tenant_id, role_id) WHERE is_active;

CREATE TABLE IF NOT EXISTS heartbeats (
    id BIGSERIAL PRIMARY KEY,
    device_code TEXT NOT NULL,
    version TEXT,
    status TEXT,
    reported_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_heartbeats_device_time
    ON heartbeats (device_code, reported_at DESC);
`

// Migrate applies the embedded schema.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
