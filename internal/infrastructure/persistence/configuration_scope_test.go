package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/erp/backoffice/internal/application/configuration"
	"github.com/erp/backoffice/internal/domain/setting"
	"github.com/erp/backoffice/internal/infrastructure/locking"
	"github.com/erp/backoffice/internal/testutil"
)

func TestGormConfigurationScope_AdvisoryLockOnPostgres(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	scope := NewGormConfigurationScope(mockDB.DB)
	businessID := uuid.New()
	lockSQL := regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")

	t.Run("commit", func(t *testing.T) {
		mockDB.Mock.ExpectBegin()
		mockDB.Mock.ExpectExec(lockSQL).
			WithArgs(locking.AdvisoryKey(appconfig.LockName(businessID))).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.Mock.ExpectCommit()

		called := false
		err := scope.Execute(context.Background(), businessID, func(repos appconfig.TransactionalRepositories) error {
			called = true
			assert.Len(t, repos.Collections(), 7)
			return nil
		})
		require.NoError(t, err)
		assert.True(t, called)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("rollback on error", func(t *testing.T) {
		mockDB.Mock.ExpectBegin()
		mockDB.Mock.ExpectExec(lockSQL).WillReturnResult(sqlmock.NewResult(0, 1))
		mockDB.Mock.ExpectRollback()

		boom := errors.New("boom")
		err := scope.Execute(context.Background(), businessID, func(appconfig.TransactionalRepositories) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("lock failure aborts before fn", func(t *testing.T) {
		mockDB.Mock.ExpectBegin()
		mockDB.Mock.ExpectExec(lockSQL).WillReturnError(errors.New("lock timeout"))
		mockDB.Mock.ExpectRollback()

		err := scope.Execute(context.Background(), businessID, func(appconfig.TransactionalRepositories) error {
			t.Fatal("fn must not run without the lock")
			return nil
		})
		assert.ErrorContains(t, err, "failed to acquire advisory lock")
		mockDB.ExpectationsWereMet(t)
	})
}

func TestGormConfigurationScope_RollsBackOnSQLite(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	scope := NewGormConfigurationScope(db)
	ctx := context.Background()
	businessID := uuid.New()

	_, err := NewGormSettingRepository(db).SeedDefaults(ctx, businessID, setting.DefaultDefinitions())
	require.NoError(t, err)

	boom := errors.New("boom")
	err = scope.Execute(ctx, businessID, func(repos appconfig.TransactionalRepositories) error {
		_, err := repos.Settings().BulkUpsert(ctx, businessID, []setting.Change{{Key: setting.KeyGeneralCostCurrency, Value: "USD"}})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	settings, err := NewGormSettingRepository(db).FindNonSensitive(ctx, businessID)
	require.NoError(t, err)
	assert.Equal(t, "CUP", setting.ValuesOf(settings)[setting.KeyGeneralCostCurrency])
}
