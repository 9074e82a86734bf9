package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/omnipushdigital/smartretail/internal/errors"
	"github.com/omnipushdigital/smartretail/internal/model"
)

func TestValidatePublishTarget(t *testing.T) {
	storeID := "store-1"
	deviceID := "dev-1"

	base := func(scope model.Scope) model.CreatePublicationParams {
		return model.CreatePublicationParams{
			TenantID: "tenant-1",
			RoleID:   "role-1",
			Scope:    scope,
			LayoutID: "layout-1",
			BundleID: "bundle-1",
		}
	}

	t.Run("global takes no target", func(t *testing.T) {
		assert.NoError(t, validatePublishTarget(base(model.ScopeGlobal)))

		params := base(model.ScopeGlobal)
		params.StoreID = &storeID
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(validatePublishTarget(params)))
	})

	t.Run("store requires store id only", func(t *testing.T) {
		params := base(model.ScopeStore)
		assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(validatePublishTarget(params)))

		params.StoreID = &storeID
		assert.NoError(t, validatePublishTarget(params))

		params.DeviceID = &deviceID
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(validatePublishTarget(params)))
	})

	t.Run("device requires device id only", func(t *testing.T) {
		params := base(model.ScopeDevice)
		assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(validatePublishTarget(params)))

		params.DeviceID = &deviceID
		assert.NoError(t, validatePublishTarget(params))

		params.StoreID = &storeID
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(validatePublishTarget(params)))
	})

	t.Run("rejects unknown scope", func(t *testing.T) {
		params := base(model.Scope("region"))
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(validatePublishTarget(params)))
	})
}
