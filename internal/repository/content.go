package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/omnipushdigital/smartretail/internal/database"
	"github.com/omnipushdigital/smartretail/internal/model"
)

type ContentRepository interface {
	GetLayout(ctx context.Context, id string) (*model.Layout, error)
	GetLayoutRegions(ctx context.Context, layoutID string) ([]model.LayoutRegion, error)
	GetPlaylistItems(ctx context.Context, playlistID string) ([]model.PlaylistItem, error)
	GetMediaByIDs(ctx context.Context, ids []string) ([]model.MediaAsset, error)
	GetMediaByID(ctx context.Context, id string) (*model.MediaAsset, error)
	GetBundle(ctx context.Context, id string) (*model.Bundle, error)
}

type contentRepo struct {
	db database.DBTX
}

func NewContentRepository(db database.DBTX) ContentRepository {
	return &contentRepo{db: db}
}

func (r *contentRepo) GetLayout(ctx context.Context, id string) (*model.Layout, error) {
	var layout model.Layout
	err := r.db.GetContext(ctx, &layout, `
		SELECT * FROM layouts WHERE id = $1
	`, id)
	return HandleNotFound(&layout, err)
}

func (r *contentRepo) GetLayoutRegions(ctx context.Context, layoutID string) ([]model.LayoutRegion, error) {
	var regions []model.LayoutRegion
	err := r.db.SelectContext(ctx, &regions, `
		SELECT * FROM layout_regions WHERE layout_id = $1 ORDER BY sort_order
	`, layoutID)
	return regions, err
}

func (r *contentRepo) GetPlaylistItems(ctx context.Context, playlistID string) ([]model.PlaylistItem, error) {
	var items []model.PlaylistItem
	err := r.db.SelectContext(ctx, &items, `
		SELECT * FROM playlist_items WHERE playlist_id = $1 ORDER BY sort_order
	`, playlistID)
	return items, err
}

func (r *contentRepo) GetMediaByIDs(ctx context.Context, ids []string) ([]model.MediaAsset, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM media_assets WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)

	var assets []model.MediaAsset
	err = r.db.SelectContext(ctx, &assets, query, args...)
	return assets, err
}

func (r *contentRepo) GetMediaByID(ctx context.Context, id string) (*model.MediaAsset, error) {
	var asset model.MediaAsset
	err := r.db.GetContext(ctx, &asset, `
		SELECT * FROM media_assets WHERE id = $1
	`, id)
	return HandleNotFound(&asset, err)
}

func (r *contentRepo) GetBundle(ctx context.Context, id string) (*model.Bundle, error) {
	var bundle model.Bundle
	err := r.db.GetContext(ctx, &bundle, `
		SELECT * FROM bundles WHERE id = $1
	`, id)
	return HandleNotFound(&bundle, err)
}
