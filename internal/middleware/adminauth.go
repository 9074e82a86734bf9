package middleware

import (
	"net/http"
	"strings"

	"github.com/omnipushdigital/smartretail/internal/audit"
	"github.com/omnipushdigital/smartretail/internal/util"
)

// AdminAuthMiddleware guards the publish/ops surface. The back office
// authenticates with a deploy-time bearer token; HTTP basic auth against a
// bcrypt password hash is accepted as a fallback for humans with curl.
type AdminAuthMiddleware struct {
	apiToken     string
	passwordHash string
}

func NewAdminAuthMiddleware(apiToken, passwordHash string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{apiToken: apiToken, passwordHash: passwordHash}
}

func (m *AdminAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.apiToken == "" && m.passwordHash == "" {
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error": "Admin API is disabled (no ADMIN_API_TOKEN or ADMIN_PASSWORD_HASH configured)",
			})
			return
		}

		if m.authenticated(r) {
			next.ServeHTTP(w, r)
			return
		}

		audit.LogFromRequest(r, audit.Event{Type: audit.EventAdminAuthFailure})
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "Invalid admin credentials",
		})
	})
}

func (m *AdminAuthMiddleware) authenticated(r *http.Request) bool {
	if m.apiToken != "" {
		if token := extractBearer(r); token != "" && util.ConstantTimeEqual(token, m.apiToken) {
			return true
		}
	}

	if m.passwordHash != "" {
		if _, password, ok := r.BasicAuth(); ok {
			return util.CheckPasswordHash(password, m.passwordHash)
		}
	}

	return false
}

func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
