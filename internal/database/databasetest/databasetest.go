// Package databasetest opens throwaway SQLite databases for package tests.
package databasetest

import (
	"fmt"
	"strings"
	"testing"

	"go-erp-backend/internal/config"
	"go-erp-backend/internal/database"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// New returns a migrated in-memory database private to t.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect(config.DatabaseConfig{
		Driver:         "sqlite",
		DSN:            fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name),
		MaxIdleConns:   1,
		MaxOpenConns:   1,
		LogLevel:       "silent",
		ConnectRetries: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
