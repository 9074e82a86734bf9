package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func deviceColumns() []string {
	return []string{
		"id", "tenant_id", "device_code", "name", "device_secret", "store_id",
		"role_id", "active", "pairing_state", "pairing_pin", "pairing_expires_at",
		"orientation", "resolution", "last_seen_at", "created_at", "updated_at",
	}
}

func deviceRow(id, code, state, secret string) []driverValue {
	now := time.Now()
	return []driverValue{
		id, "tenant-1", code, nil, secret, nil, nil, true, state, nil, nil,
		"landscape", nil, nil, now, now,
	}
}

type driverValue = driver.Value

func TestDeviceRepository_FindByCode(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewDeviceRepository(db)
	ctx := context.Background()

	t.Run("returns device", func(t *testing.T) {
		rows := sqlmock.NewRows(deviceColumns()).
			AddRow(deviceRow("dev-1", "ABC-1234", "paired", "s3cret")...)

		mock.ExpectQuery(`SELECT \* FROM devices WHERE device_code`).
			WithArgs("ABC-1234").
			WillReturnRows(rows)

		d, err := repo.FindByCode(ctx, "ABC-1234")
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, "dev-1", d.ID)
		assert.Equal(t, "ABC-1234", d.DeviceCode)
		require.NotNil(t, d.DeviceSecret)
		assert.Equal(t, "s3cret", *d.DeviceSecret)
	})

	t.Run("returns nil for unknown code", func(t *testing.T) {
		mock.ExpectQuery(`SELECT \* FROM devices WHERE device_code`).
			WithArgs("NOPE-0000").
			WillReturnRows(sqlmock.NewRows(deviceColumns()))

		d, err := repo.FindByCode(ctx, "NOPE-0000")
		require.NoError(t, err)
		assert.Nil(t, d)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceRepository_ClaimPin(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewDeviceRepository(db)
	ctx := context.Background()

	t.Run("claims live pin", func(t *testing.T) {
		rows := sqlmock.NewRows(deviceColumns()).
			AddRow(deviceRow("dev-1", "ABC-1234", "paired", "newsecret")...)

		mock.ExpectQuery(`UPDATE devices SET`).
			WithArgs("123456", "newsecret", "role-default").
			WillReturnRows(rows)

		d, err := repo.ClaimPin(ctx, "123456", "newsecret", "role-default")
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, "paired", string(d.PairingState))
		assert.True(t, d.Active)
	})

	t.Run("claims without a default role", func(t *testing.T) {
		// No seeded default role: the empty id must become NULL, not an
		// empty-string role_id that the FK would reject.
		rows := sqlmock.NewRows(deviceColumns()).
			AddRow(deviceRow("dev-2", "XYZ-9999", "paired", "newsecret")...)

		mock.ExpectQuery(`UPDATE devices SET[\s\S]*NULLIF\(\$3, ''\)`).
			WithArgs("222333", "newsecret", "").
			WillReturnRows(rows)

		d, err := repo.ClaimPin(ctx, "222333", "newsecret", "")
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Nil(t, d.RoleID)
		assert.Equal(t, "paired", string(d.PairingState))
	})

	t.Run("returns nil when no live pin matches", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE devices SET`).
			WithArgs("654321", "newsecret", "role-default").
			WillReturnRows(sqlmock.NewRows(deviceColumns()))

		d, err := repo.ClaimPin(ctx, "654321", "newsecret", "role-default")
		require.NoError(t, err)
		assert.Nil(t, d)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceRepository_ExpirePins(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewDeviceRepository(db)

	mock.ExpectExec(`UPDATE devices SET`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.ExpirePins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

