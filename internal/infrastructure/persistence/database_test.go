package persistence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/backoffice/internal/testutil"
)

func TestDatabase_WithBusiness(t *testing.T) {
	db := &Database{DB: testutil.NewSQLiteDB(t)}

	t.Run("nil business panics", func(t *testing.T) {
		assert.Panics(t, func() { db.WithBusiness(uuid.Nil) })
	})

	t.Run("scopes queries", func(t *testing.T) {
		seedCostRows(t, db.DB, uuid.New(), decimalOne())
		mine := uuid.New()
		seedCostRows(t, db.DB, mine, decimalOne())

		var count int64
		require.NoError(t, db.WithBusiness(mine).Table("products").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestDatabase_StatsAndDialect(t *testing.T) {
	db := &Database{DB: testutil.NewSQLiteDB(t)}

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)
	assert.False(t, isPostgres(db.DB))
	assert.True(t, isPostgres(testutil.NewMockDB(t).DB))
}
