package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/omnipushdigital/smartretail/internal/errors"
	"github.com/omnipushdigital/smartretail/internal/repository"
	"github.com/omnipushdigital/smartretail/internal/service"
)

// AssetsHandler serves storage-backed media behind signed, expiring URLs.
// The manifest builder is the only issuer of these URLs.
type AssetsHandler struct {
	contentRepo repository.ContentRepository
	signer      *service.URLSigner
	mediaRoot   string
}

func NewAssetsHandler(contentRepo repository.ContentRepository, signer *service.URLSigner, mediaRoot string) *AssetsHandler {
	return &AssetsHandler{
		contentRepo: contentRepo,
		signer:      signer,
		mediaRoot:   mediaRoot,
	}
}

func (h *AssetsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")
	expires := r.URL.Query().Get("expires")
	sig := r.URL.Query().Get("sig")

	if err := h.signer.Verify(mediaID, expires, sig); err != nil {
		writeError(w, err)
		return
	}

	media, err := h.contentRepo.GetMediaByID(r.Context(), mediaID)
	if err != nil {
		writeError(w, apperrors.Database(err))
		return
	}
	if media == nil || media.StorageKey == nil {
		writeError(w, apperrors.NotFound("Media asset"))
		return
	}

	// Storage keys are relative paths under the media root; reject anything
	// that escapes it.
	path := filepath.Join(h.mediaRoot, filepath.FromSlash(*media.StorageKey))
	if !strings.HasPrefix(path, filepath.Clean(h.mediaRoot)+string(filepath.Separator)) {
		log.Warn().Str("mediaId", mediaID).Str("storageKey", *media.StorageKey).Msg("storage key escapes media root")
		writeError(w, apperrors.NotFound("Media asset"))
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeFile(w, r, path)
}
