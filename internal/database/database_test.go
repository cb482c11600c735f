package database

import (
	"testing"

	"smartdecor/config"
	"smartdecor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	gormlogger "gorm.io/gorm/logger"
)

func TestNewDBSQLiteAndMigrate(t *testing.T) {
	db, err := NewDB(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", MaxIdleConns: 1, MaxOpenConns: 1}, zaptest.NewLogger(t), gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	for _, m := range []any{&models.User{}, &models.Product{}, &models.Payment{}, &models.Notification{}} {
		assert.True(t, db.Migrator().HasTable(m))
	}
	assert.True(t, db.Migrator().HasIndex(&models.Payment{}, "idx_payment_correlation"))
}

func TestNewDBRejectsUnknownDriver(t *testing.T) {
	_, err := NewDB(&config.DatabaseConfig{Driver: "oracle"}, zaptest.NewLogger(t), gormlogger.Silent)
	assert.ErrorContains(t, err, "unsupported database driver")
}
