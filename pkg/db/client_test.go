package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/extrachill/marketplace-settlement/pkg/config"
)

type testModel struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&testModel{}))
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := NewFromGorm(db)

	ctx := context.Background()
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}))

	var count int64
	require.NoError(t, db.Model(&testModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)
	require.NoError(t, db.Model(&testModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPing(t *testing.T) {
	client := NewFromGorm(newTestDB(t))
	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewUsesSQLiteWhenFlagged(t *testing.T) {
	client, err := New(context.Background(),
		config.DBConfig{DSN: "file:new_sqlite?mode=memory&cache=shared", MaxOpenConns: 1},
		config.FeatureFlagsConfig{UseSQLite: true},
		nil,
	)
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, "sqlite", client.DB().Dialector.Name())
}

func TestNewRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{}, config.FeatureFlagsConfig{}, nil)
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&testModel{Name: "dup"}).Error)
	err := db.Create(&testModel{Name: "dup"}).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "test_models.name"))
	assert.False(t, IsUniqueViolation(err, "other_constraint"))

	pgErr := fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23505", ConstraintName: "ux_orders"})
	assert.True(t, IsUniqueViolation(pgErr, "ux_orders"))
	assert.False(t, IsUniqueViolation(pgErr, "ux_other"))

	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505", Constraint: "ux_a"}, "ux_a"))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}
