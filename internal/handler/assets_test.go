package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnipushdigital/smartretail/internal/model"
	"github.com/omnipushdigital/smartretail/internal/service"
)

type memContentRepo struct {
	media map[string]*model.MediaAsset
}

func (r *memContentRepo) GetLayout(ctx context.Context, id string) (*model.Layout, error) {
	return nil, nil
}
func (r *memContentRepo) GetLayoutRegions(ctx context.Context, layoutID string) ([]model.LayoutRegion, error) {
	return nil, nil
}
func (r *memContentRepo) GetPlaylistItems(ctx context.Context, playlistID string) ([]model.PlaylistItem, error) {
	return nil, nil
}
func (r *memContentRepo) GetMediaByIDs(ctx context.Context, ids []string) ([]model.MediaAsset, error) {
	return nil, nil
}
func (r *memContentRepo) GetMediaByID(ctx context.Context, id string) (*model.MediaAsset, error) {
	return r.media[id], nil
}
func (r *memContentRepo) GetBundle(ctx context.Context, id string) (*model.Bundle, error) {
	return nil, nil
}

func assetRequest(signedURL string) *http.Request {
	u, _ := url.Parse(signedURL)
	req := httptest.NewRequest("GET", u.RequestURI(), nil)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("mediaID", filepath.Base(u.Path))
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestAssetsHandler(t *testing.T) {
	mediaRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(mediaRoot, "promo.jpg"), []byte("jpeg-bytes"), 0o644))

	storageKey := "promo.jpg"
	repo := &memContentRepo{media: map[string]*model.MediaAsset{
		"media-1": {ID: "media-1", Type: model.MediaTypeImage, StorageKey: &storageKey},
	}}
	signer := service.NewURLSigner("test-secret", "", time.Hour)
	h := NewAssetsHandler(repo, signer, mediaRoot)

	t.Run("serves file for valid signature", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Serve(rec, assetRequest(signer.Sign("media-1", time.Now())))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "jpeg-bytes", rec.Body.String())
	})

	t.Run("rejects tampered signature", func(t *testing.T) {
		signed := signer.Sign("media-1", time.Now())
		rec := httptest.NewRecorder()
		h.Serve(rec, assetRequest(signed+"0"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rejects expired url", func(t *testing.T) {
		expired := service.NewURLSigner("test-secret", "", -time.Hour)
		rec := httptest.NewRecorder()
		h.Serve(rec, assetRequest(expired.Sign("media-1", time.Now())))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rejects signature from different secret", func(t *testing.T) {
		other := service.NewURLSigner("other-secret", "", time.Hour)
		rec := httptest.NewRecorder()
		h.Serve(rec, assetRequest(other.Sign("media-1", time.Now())))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown media id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Serve(rec, assetRequest(signer.Sign("media-2", time.Now())))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
