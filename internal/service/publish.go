package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/omnipushdigital/smartretail/internal/audit"
	"github.com/omnipushdigital/smartretail/internal/database"
	apperrors "github.com/omnipushdigital/smartretail/internal/errors"
	"github.com/omnipushdigital/smartretail/internal/events"
	"github.com/omnipushdigital/smartretail/internal/model"
	"github.com/omnipushdigital/smartretail/internal/repository"
)

// uniqueViolation is the postgres error code raised when the partial unique
// index on active publications rejects a second active row for one target.
const uniqueViolation = "23505"

type PublishService struct {
	db     *database.DB
	broker *events.Broker
}

func NewPublishService(db *database.DB, broker *events.Broker) *PublishService {
	return &PublishService{db: db, broker: broker}
}

// Publish deactivates the prior active publication for the target and
// activates the new one as a single atomic step. The unique index backstops
// the swap: if a concurrent publish slips between the two statements, one of
// the transactions fails instead of leaving two active rows.
func (s *PublishService) Publish(ctx context.Context, params model.CreatePublicationParams) (*model.Publication, error) {
	if err := validatePublishTarget(params); err != nil {
		return nil, err
	}

	var pub *model.Publication
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := repository.NewPublicationRepository(tx)

		retired, err := repo.DeactivateForTarget(ctx, params.TenantID, params.RoleID, params.Scope, params.StoreID, params.DeviceID)
		if err != nil {
			return err
		}

		pub, err = repo.Create(ctx, params)
		if err != nil {
			return err
		}

		log.Info().
			Str("publicationId", pub.ID).
			Str("scope", string(pub.Scope)).
			Str("roleId", pub.RoleID).
			Int64("retired", retired).
			Msg("publication activated")
		return nil
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, apperrors.New(apperrors.ErrCodeConflict, "Concurrent publish for the same target; retry")
		}
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{
		Type:     audit.EventPublicationCreated,
		TenantID: pub.TenantID,
		Details:  map[string]interface{}{"publication_id": pub.ID, "scope": string(pub.Scope)},
	})

	if s.broker != nil {
		payload, _ := json.Marshal(map[string]string{
			"publication_id": pub.ID,
			"scope":          string(pub.Scope),
			"role_id":        pub.RoleID,
			"bundle_id":      pub.BundleID,
		})
		if err := s.broker.Publish(ctx, pub.TenantID, events.Event{
			Type: events.TypePublicationPublished,
			Data: payload,
		}); err != nil {
			log.Warn().Err(err).Msg("failed to publish publication event")
		}
	}

	return pub, nil
}

func validatePublishTarget(params model.CreatePublicationParams) error {
	switch params.Scope {
	case model.ScopeGlobal:
		if params.StoreID != nil || params.DeviceID != nil {
			return apperrors.InvalidInput("scope", "global publications take no target")
		}
	case model.ScopeStore:
		if params.StoreID == nil {
			return apperrors.MissingRequired("store_id")
		}
		if params.DeviceID != nil {
			return apperrors.InvalidInput("device_id", "not allowed for store scope")
		}
	case model.ScopeDevice:
		if params.DeviceID == nil {
			return apperrors.MissingRequired("device_id")
		}
		if params.StoreID != nil {
			return apperrors.InvalidInput("store_id", "not allowed for device scope")
		}
	default:
		return apperrors.InvalidInput("scope", "expected global, store or device")
	}
	return nil
}
