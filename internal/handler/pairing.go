package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"

	apperrors "github.com/omnipushdigital/smartretail/internal/errors"
	"github.com/omnipushdigital/smartretail/internal/events"
	"github.com/omnipushdigital/smartretail/internal/service"
)

// PairingHandler drives the three-step pairing exchange on a single endpoint.
// The player calls INIT to obtain a pin, the back office redeems it with
// CLAIM, and the player polls CLAIM_POLL until the secret is released.
type PairingHandler struct {
	pairingService *service.PairingService
	broker         *events.Broker
}

func NewPairingHandler(pairingService *service.PairingService, broker *events.Broker) *PairingHandler {
	return &PairingHandler{pairingService: pairingService, broker: broker}
}

type pairingRequest struct {
	Action     string `json:"action"`
	DeviceCode string `json:"device_code"`
	Pin        string `json:"pin"`
}

func (h *PairingHandler) Pair(w http.ResponseWriter, r *http.Request) {
	var req pairingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "expected JSON"))
		return
	}

	ctx := r.Context()

	switch req.Action {
	case "INIT":
		device, err := h.pairingService.Init(ctx, req.DeviceCode)
		if err != nil {
			writeError(w, err)
			return
		}
		resp := map[string]any{
			"device_code": device.DeviceCode,
			"pin":         device.PairingPin,
			"expires_at":  formatTime(device.PairingExpiresAt),
		}
		// The QR encodes the pin so a store employee can scan the screen
		// instead of typing. Rendering failure is not fatal to pairing.
		if device.PairingPin != nil {
			if png, err := qrcode.Encode(*device.PairingPin, qrcode.Medium, 256); err == nil {
				resp["pin_qr_png"] = base64.StdEncoding.EncodeToString(png)
			} else {
				log.Warn().Err(err).Msg("failed to render pairing qr code")
			}
		}
		writeJSON(w, http.StatusOK, resp)

	case "CLAIM":
		device, err := h.pairingService.Claim(ctx, req.Pin)
		if err != nil {
			writeError(w, err)
			return
		}
		if h.broker != nil {
			payload, _ := json.Marshal(map[string]string{"device_code": device.DeviceCode})
			if err := h.broker.Publish(ctx, device.TenantID, events.Event{
				Type: events.TypeDevicePaired,
				Data: payload,
			}); err != nil {
				log.Warn().Err(err).Msg("failed to publish device paired event")
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"device_code": device.DeviceCode,
			"paired_at":   time.Now().Format(time.RFC3339),
		})

	case "CLAIM_POLL":
		result, err := h.pairingService.ClaimPoll(ctx, req.DeviceCode)
		if err != nil {
			writeError(w, err)
			return
		}
		resp := map[string]any{"status": result.Status}
		if result.Status == service.ClaimPollPaired {
			resp["device_secret"] = result.DeviceSecret
		}
		writeJSON(w, http.StatusOK, resp)

	default:
		writeError(w, apperrors.InvalidInput("action", "expected INIT, CLAIM or CLAIM_POLL"))
	}
}
