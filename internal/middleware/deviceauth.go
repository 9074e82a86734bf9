package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/omnipushdigital/smartretail/internal/audit"
	"github.com/omnipushdigital/smartretail/internal/model"
	"github.com/omnipushdigital/smartretail/internal/repository"
	"github.com/omnipushdigital/smartretail/internal/util"
)

type contextKey string

const DeviceContextKey contextKey = "device"

func GetDevice(ctx context.Context) *model.Device {
	if device, ok := ctx.Value(DeviceContextKey).(*model.Device); ok {
		return device
	}
	return nil
}

// deviceCredentials are carried in the JSON request body per the player wire
// protocol, with header fallbacks for GET-style requests.
type deviceCredentials struct {
	DeviceCode   string `json:"device_code"`
	DeviceSecret string `json:"device_secret"`
}

type DeviceAuthMiddleware struct {
	deviceRepo repository.DeviceRepository
}

func NewDeviceAuthMiddleware(deviceRepo repository.DeviceRepository) *DeviceAuthMiddleware {
	return &DeviceAuthMiddleware{deviceRepo: deviceRepo}
}

func (m *DeviceAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creds := extractCredentials(r)
		if creds.DeviceCode == "" || creds.DeviceSecret == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing device credentials",
			})
			return
		}

		device, err := m.deviceRepo.FindByCode(r.Context(), creds.DeviceCode)
		if err != nil {
			log.Error().Err(err).Msg("device auth: database error")
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Authentication failed",
			})
			return
		}

		if device == nil || device.DeviceSecret == nil ||
			!util.ConstantTimeEqual(*device.DeviceSecret, creds.DeviceSecret) {
			audit.LogFromRequest(r, audit.Event{
				Type:       audit.EventDeviceAuthFailure,
				DeviceCode: creds.DeviceCode,
			})
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid device credentials",
			})
			return
		}

		if !device.Active {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Device is deactivated",
			})
			return
		}

		ctx := context.WithValue(r.Context(), DeviceContextKey, device)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractCredentials reads credentials from the body without consuming it:
// the body is restored so handlers can decode their own request types.
func extractCredentials(r *http.Request) deviceCredentials {
	var creds deviceCredentials

	if code := r.Header.Get("X-Device-Code"); code != "" {
		creds.DeviceCode = code
		creds.DeviceSecret = r.Header.Get("X-Device-Secret")
		return creds
	}

	if r.Body == nil {
		return creds
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return creds
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	_ = json.Unmarshal(body, &creds)
	return creds
}
