package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	apperrors "github.com/omnipushdigital/smartretail/internal/errors"
	"github.com/omnipushdigital/smartretail/internal/model"
	"github.com/omnipushdigital/smartretail/internal/repository"
)

// ErrNoActivePublication signals "authenticated, nothing to show yet". It is
// distinct from an error: callers turn it into a standby response, not a
// fault.
var ErrNoActivePublication = errors.New("no active publication")

// ResolveDiagnostics accompanies ErrNoActivePublication so the player can
// render a meaningful idle screen.
type ResolveDiagnostics struct {
	TenantID      string
	RoleID        *string
	ActiveForRole int
}

type ResolverService struct {
	pubRepo repository.PublicationRepository
}

func NewResolverService(pubRepo repository.PublicationRepository) *ResolverService {
	return &ResolverService{pubRepo: pubRepo}
}

// Resolve picks the single applicable publication for a device, in strict
// priority order: DEVICE match, then STORE match, then GLOBAL. The active-
// publication uniqueness invariant means at most one candidate exists per
// tier; if it has been violated the newest-first ordering from the repository
// still yields a deterministic winner and we log the anomaly.
func (s *ResolverService) Resolve(ctx context.Context, device *model.Device) (*model.Publication, *ResolveDiagnostics, error) {
	diag := &ResolveDiagnostics{TenantID: device.TenantID, RoleID: device.RoleID}

	if device.RoleID == nil {
		return nil, diag, ErrNoActivePublication
	}

	pubs, err := s.pubRepo.FindActiveByRole(ctx, device.TenantID, *device.RoleID)
	if err != nil {
		return nil, nil, apperrors.Database(err)
	}
	diag.ActiveForRole = len(pubs)

	if winner := s.pickTier(pubs, model.ScopeDevice, device); winner != nil {
		return winner, diag, nil
	}
	if winner := s.pickTier(pubs, model.ScopeStore, device); winner != nil {
		return winner, diag, nil
	}
	if winner := s.pickTier(pubs, model.ScopeGlobal, device); winner != nil {
		return winner, diag, nil
	}

	return nil, diag, ErrNoActivePublication
}

// pickTier returns the first (most recently published) active publication in
// the given tier matching the device, or nil.
func (s *ResolverService) pickTier(pubs []model.Publication, scope model.Scope, device *model.Device) *model.Publication {
	var winner *model.Publication
	matches := 0

	for i := range pubs {
		pub := &pubs[i]
		if pub.Scope != scope {
			continue
		}
		switch scope {
		case model.ScopeDevice:
			if pub.DeviceID == nil || *pub.DeviceID != device.ID {
				continue
			}
		case model.ScopeStore:
			if device.StoreID == nil || pub.StoreID == nil || *pub.StoreID != *device.StoreID {
				continue
			}
		}
		matches++
		if winner == nil {
			winner = pub
		}
	}

	if matches > 1 {
		log.Warn().
			Str("deviceCode", device.DeviceCode).
			Str("scope", string(scope)).
			Int("matches", matches).
			Str("picked", winner.ID).
			Msg("multiple active publications for one scope target; uniqueness invariant violated")
	}

	return winner
}
