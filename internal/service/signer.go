package service

import (
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/omnipushdigital/smartretail/internal/errors"
	"github.com/omnipushdigital/smartretail/internal/util"
)

// URLSigner issues time-limited signed URLs for storage-backed assets. The
// signature covers the media id and the expiry so neither can be swapped.
type URLSigner struct {
	secret  string
	baseURL string
	ttl     time.Duration
}

func NewURLSigner(secret, baseURL string, ttl time.Duration) *URLSigner {
	return &URLSigner{secret: secret, baseURL: baseURL, ttl: ttl}
}

func (s *URLSigner) Sign(mediaID string, now time.Time) string {
	expires := now.Add(s.ttl).Unix()
	sig := util.HmacSHA256(s.secret, signingPayload(mediaID, expires))
	return fmt.Sprintf("%s/assets/%s?expires=%d&sig=%s", s.baseURL, mediaID, expires, sig)
}

// SignAll signs a batch with a single timestamp. The manifest builder calls
// this once per manifest rather than once per asset.
func (s *URLSigner) SignAll(mediaIDs []string) map[string]string {
	now := time.Now()
	urls := make(map[string]string, len(mediaIDs))
	for _, id := range mediaIDs {
		urls[id] = s.Sign(id, now)
	}
	return urls
}

// Verify checks signature and expiry for an incoming asset request.
func (s *URLSigner) Verify(mediaID, expiresStr, sig string) error {
	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		return apperrors.InvalidSignature()
	}

	expected := util.HmacSHA256(s.secret, signingPayload(mediaID, expires))
	if !util.ConstantTimeEqual(expected, sig) {
		return apperrors.InvalidSignature()
	}
	if time.Now().Unix() > expires {
		return apperrors.URLExpired()
	}
	return nil
}

func signingPayload(mediaID string, expires int64) string {
	return fmt.Sprintf("%s:%d", mediaID, expires)
}
