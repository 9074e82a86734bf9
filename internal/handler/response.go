package handler

import (
	"net/http"
	"time"

	"github.com/omnipushdigital/smartretail/internal/httputil"
	"github.com/omnipushdigital/smartretail/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func formatDevice(device model.Device) map[string]any {
	return map[string]any{
		"id":           device.ID,
		"deviceCode":   device.DeviceCode,
		"name":         device.Name,
		"storeId":      device.StoreID,
		"roleId":       device.RoleID,
		"active":       device.Active,
		"pairingState": device.PairingState,
		"orientation":  device.Orientation,
		"resolution":   device.Resolution,
		"lastSeenAt":   formatTime(device.LastSeenAt),
		"createdAt":    device.CreatedAt.Format(time.RFC3339),
	}
}
