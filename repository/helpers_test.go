package repository_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sitesafe/safemap/compliance"
	"github.com/sitesafe/safemap/config"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "safemap.db") + "?_busy_timeout=5000"
	db, err := config.OpenDatabase(config.DriverSQLite, dsn, "silent")
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func day(t *testing.T, s string) compliance.Day {
	t.Helper()
	d, err := compliance.ParseDay(s)
	require.NoError(t, err)
	return d
}
