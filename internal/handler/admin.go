package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/omnipushdigital/smartretail/internal/audit"
	apperrors "github.com/omnipushdigital/smartretail/internal/errors"
	"github.com/omnipushdigital/smartretail/internal/events"
	"github.com/omnipushdigital/smartretail/internal/model"
	"github.com/omnipushdigital/smartretail/internal/repository"
	"github.com/omnipushdigital/smartretail/internal/service"
	"github.com/omnipushdigital/smartretail/internal/util"
)

const sseHeartbeatInterval = 30 * time.Second

// AdminHandler is the back-office surface: publishing, device inventory and
// the live event stream.
type AdminHandler struct {
	publishService   *service.PublishService
	heartbeatService *service.HeartbeatService
	deviceRepo       repository.DeviceRepository
	broker           *events.Broker
	tenantID         string
}

func NewAdminHandler(
	publishService *service.PublishService,
	heartbeatService *service.HeartbeatService,
	deviceRepo repository.DeviceRepository,
	broker *events.Broker,
	tenantID string,
) *AdminHandler {
	return &AdminHandler{
		publishService:   publishService,
		heartbeatService: heartbeatService,
		deviceRepo:       deviceRepo,
		broker:           broker,
		tenantID:         tenantID,
	}
}

type publishRequest struct {
	RoleID      string  `json:"role_id"`
	Scope       string  `json:"scope"`
	StoreID     *string `json:"store_id,omitempty"`
	DeviceID    *string `json:"device_id,omitempty"`
	LayoutID    string  `json:"layout_id"`
	BundleID    string  `json:"bundle_id"`
	PublishedBy *string `json:"published_by,omitempty"`
}

func (h *AdminHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "expected JSON"))
		return
	}

	if req.RoleID == "" {
		writeError(w, apperrors.MissingRequired("role_id"))
		return
	}
	if req.LayoutID == "" {
		writeError(w, apperrors.MissingRequired("layout_id"))
		return
	}
	if req.BundleID == "" {
		writeError(w, apperrors.MissingRequired("bundle_id"))
		return
	}
	for field, id := range map[string]string{
		"role_id": req.RoleID, "layout_id": req.LayoutID, "bundle_id": req.BundleID,
	} {
		if !util.IsValidUUID(id) {
			writeError(w, apperrors.InvalidInput(field, "expected a UUID"))
			return
		}
	}

	pub, err := h.publishService.Publish(r.Context(), model.CreatePublicationParams{
		TenantID:    h.tenantID,
		RoleID:      req.RoleID,
		Scope:       model.Scope(req.Scope),
		StoreID:     req.StoreID,
		DeviceID:    req.DeviceID,
		LayoutID:    req.LayoutID,
		BundleID:    req.BundleID,
		PublishedBy: req.PublishedBy,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, pub)
}

// Devices lists the tenant's devices with liveness derived from heartbeats.
func (h *AdminHandler) Devices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.deviceRepo.ListByTenant(r.Context(), h.tenantID)
	if err != nil {
		writeError(w, apperrors.Database(err))
		return
	}

	result := make([]map[string]any, 0, len(devices))
	for _, device := range devices {
		entry := formatDevice(device)
		status, err := h.heartbeatService.Status(r.Context(), device.DeviceCode)
		if err != nil {
			log.Warn().Err(err).Str("deviceCode", device.DeviceCode).Msg("failed to load device status")
		} else {
			entry["online"] = status.Online
			entry["reportedVersion"] = status.Version
			entry["reportedStatus"] = status.Status
			entry["reportedAt"] = formatTime(status.ReportedAt)
		}
		result = append(result, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": result,
		"count":   len(result),
	})
}

// DeactivateDevice revokes a device. Its credentials stop authenticating on
// the next request; re-enrollment goes through pairing again.
func (h *AdminHandler) DeactivateDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	device, err := h.deviceRepo.FindByID(r.Context(), deviceID)
	if err != nil {
		writeError(w, apperrors.Database(err))
		return
	}
	if device == nil {
		writeError(w, apperrors.NotFound("Device"))
		return
	}

	if err := h.deviceRepo.Deactivate(r.Context(), deviceID); err != nil {
		writeError(w, apperrors.Database(err))
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:       audit.EventDeviceDeactivated,
		DeviceCode: device.DeviceCode,
		TenantID:   device.TenantID,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// Events streams device lifecycle and publication events over SSE.
func (h *AdminHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, apperrors.Internal("Streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.broker.Subscribe(h.tenantID)
	defer h.broker.Unsubscribe(client)

	log.Info().Str("tenantId", h.tenantID).Msg("admin event stream established")

	if err := h.sendEvent(w, flusher, events.Event{
		Type: "connected",
		Data: json.RawMessage(fmt.Sprintf(`{"tenantId":%q}`, h.tenantID)),
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("tenantId", h.tenantID).Msg("admin event stream closed by client")
			return

		case <-client.Done:
			log.Info().Str("tenantId", h.tenantID).Msg("admin event stream closed by broker")
			return

		case event := <-client.Events:
			if err := h.sendEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Msg("failed to send admin event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *AdminHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event events.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", event.Data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
