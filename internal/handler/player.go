package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/omnipushdigital/smartretail/internal/errors"
	"github.com/omnipushdigital/smartretail/internal/middleware"
	"github.com/omnipushdigital/smartretail/internal/model"
	"github.com/omnipushdigital/smartretail/internal/service"
	"github.com/omnipushdigital/smartretail/internal/util"
)

// PlayerHandler serves the authenticated player surface: manifest sync and
// heartbeats. Device identity comes from the auth middleware.
type PlayerHandler struct {
	manifestService  *service.ManifestService
	heartbeatService *service.HeartbeatService
}

func NewPlayerHandler(
	manifestService *service.ManifestService,
	heartbeatService *service.HeartbeatService,
) *PlayerHandler {
	return &PlayerHandler{
		manifestService:  manifestService,
		heartbeatService: heartbeatService,
	}
}

type manifestRequest struct {
	CurrentVersion string `json:"current_version,omitempty"`
}

func (h *PlayerHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	device := middleware.GetDevice(r.Context())
	if device == nil {
		writeError(w, apperrors.Unauthorized("Missing device context"))
		return
	}

	var req manifestRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	manifest, err := h.manifestService.Build(r.Context(), device)
	if err != nil {
		writeError(w, err)
		return
	}

	// An unchanged version is still answered with the full manifest; the
	// player decides whether to re-apply. 304 semantics are not worth the
	// cache-validation complexity at this poll cadence.
	if req.CurrentVersion != "" && req.CurrentVersion == manifest.Resolved.Version {
		log.Debug().
			Str("deviceCode", device.DeviceCode).
			Str("version", manifest.Resolved.Version).
			Msg("player already on current version")
	}

	writeJSON(w, http.StatusOK, manifest)
}

type heartbeatRequest struct {
	Version *string `json:"version,omitempty"`
	Status  *string `json:"status,omitempty"`
}

func (h *PlayerHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	device := middleware.GetDevice(r.Context())
	if device == nil {
		writeError(w, apperrors.Unauthorized("Missing device context"))
		return
	}

	var req heartbeatRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	// Every engine state is a reportable status. LOADING and SECRET_REQUIRED
	// show up in the window between re-pairing and the first manifest fetch.
	if req.Status != nil && !util.IsValidEnum(*req.Status, []string{"LOADING", "SECRET_REQUIRED", "PLAYING", "STANDBY", "ERROR"}) {
		writeError(w, apperrors.InvalidInput("status", "unknown player state"))
		return
	}

	err := h.heartbeatService.Record(r.Context(), model.InsertHeartbeatParams{
		DeviceCode: device.DeviceCode,
		TenantID:   device.TenantID,
		Version:    req.Version,
		Status:     req.Status,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
