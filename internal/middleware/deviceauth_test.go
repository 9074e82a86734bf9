package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/omnipushdigital/smartretail/internal/model"
)

type stubDeviceRepo struct {
	device *model.Device
	err    error
}

func (s *stubDeviceRepo) FindByCode(ctx context.Context, code string) (*model.Device, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.device != nil && s.device.DeviceCode == code {
		return s.device, nil
	}
	return nil, nil
}

func (s *stubDeviceRepo) FindByID(ctx context.Context, id string) (*model.Device, error) {
	return nil, nil
}
func (s *stubDeviceRepo) Create(ctx context.Context, params model.CreateDeviceParams) (*model.Device, error) {
	return nil, nil
}
func (s *stubDeviceRepo) IssuePin(ctx context.Context, deviceID, pin string, expiresAt time.Time) (*model.Device, error) {
	return nil, nil
}
func (s *stubDeviceRepo) ClaimPin(ctx context.Context, pin, secret, defaultRoleID string) (*model.Device, error) {
	return nil, nil
}
func (s *stubDeviceRepo) UpdateLastSeen(ctx context.Context, deviceCode string) error { return nil }
func (s *stubDeviceRepo) Deactivate(ctx context.Context, deviceID string) error       { return nil }
func (s *stubDeviceRepo) ExpirePins(ctx context.Context) (int64, error)               { return 0, nil }
func (s *stubDeviceRepo) ListByTenant(ctx context.Context, tenantID string) ([]model.Device, error) {
	return nil, nil
}

func activeDevice(secret string) *model.Device {
	return &model.Device{
		ID:           "dev-1",
		DeviceCode:   "ABC-1234",
		DeviceSecret: &secret,
		Active:       true,
		PairingState: model.PairingStatePaired,
	}
}

func echoDeviceHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		device := GetDevice(r.Context())
		assert.NotNil(t, device)
		w.WriteHeader(http.StatusOK)
	})
}

func TestDeviceAuthMiddleware(t *testing.T) {
	t.Run("accepts valid body credentials and restores body", func(t *testing.T) {
		repo := &stubDeviceRepo{device: activeDevice("s3cret")}
		mw := NewDeviceAuthMiddleware(repo)

		var sawBody string
		handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buf := make([]byte, 1024)
			n, _ := r.Body.Read(buf)
			sawBody = string(buf[:n])
			w.WriteHeader(http.StatusOK)
		}))

		body := `{"device_code":"ABC-1234","device_secret":"s3cret","current_version":"v1"}`
		req := httptest.NewRequest("POST", "/api/player/manifest", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, body, sawBody)
	})

	t.Run("accepts header credentials", func(t *testing.T) {
		repo := &stubDeviceRepo{device: activeDevice("s3cret")}
		mw := NewDeviceAuthMiddleware(repo)
		handler := mw.Handler(echoDeviceHandler(t))

		req := httptest.NewRequest("GET", "/api/player/manifest", nil)
		req.Header.Set("X-Device-Code", "ABC-1234")
		req.Header.Set("X-Device-Secret", "s3cret")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects missing credentials", func(t *testing.T) {
		mw := NewDeviceAuthMiddleware(&stubDeviceRepo{})
		handler := mw.Handler(echoDeviceHandler(t))

		req := httptest.NewRequest("POST", "/api/player/manifest", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		repo := &stubDeviceRepo{device: activeDevice("s3cret")}
		mw := NewDeviceAuthMiddleware(repo)
		handler := mw.Handler(echoDeviceHandler(t))

		body := `{"device_code":"ABC-1234","device_secret":"wrong"}`
		req := httptest.NewRequest("POST", "/api/player/manifest", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects unknown device", func(t *testing.T) {
		mw := NewDeviceAuthMiddleware(&stubDeviceRepo{})
		handler := mw.Handler(echoDeviceHandler(t))

		body := `{"device_code":"NOPE-1","device_secret":"s3cret"}`
		req := httptest.NewRequest("POST", "/api/player/manifest", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects deactivated device", func(t *testing.T) {
		device := activeDevice("s3cret")
		device.Active = false
		mw := NewDeviceAuthMiddleware(&stubDeviceRepo{device: device})
		handler := mw.Handler(echoDeviceHandler(t))

		body := `{"device_code":"ABC-1234","device_secret":"s3cret"}`
		req := httptest.NewRequest("POST", "/api/player/manifest", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAdminAuthMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// well-formed bcrypt hash, cost 10
	const passwordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

	t.Run("accepts matching bearer token", func(t *testing.T) {
		mw := NewAdminAuthMiddleware("admin-token", "")
		req := httptest.NewRequest("POST", "/api/admin/publish", nil)
		req.Header.Set("Authorization", "Bearer admin-token")
		rec := httptest.NewRecorder()
		mw.Handler(okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects wrong token", func(t *testing.T) {
		mw := NewAdminAuthMiddleware("admin-token", "")
		req := httptest.NewRequest("POST", "/api/admin/publish", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		mw.Handler(okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects wrong basic auth password", func(t *testing.T) {
		mw := NewAdminAuthMiddleware("", passwordHash)
		req := httptest.NewRequest("POST", "/api/admin/publish", nil)
		req.SetBasicAuth("admin", "wrong")
		rec := httptest.NewRecorder()
		mw.Handler(okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("forbidden when admin api disabled", func(t *testing.T) {
		mw := NewAdminAuthMiddleware("", "")
		req := httptest.NewRequest("POST", "/api/admin/publish", nil)
		rec := httptest.NewRecorder()
		mw.Handler(okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
