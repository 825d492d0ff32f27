// Package dbtest opens a throwaway migrated database for package tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"arcadepress/internal/db"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// New returns a sqlite database in t.TempDir(), migrated and closed on cleanup.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	conn, err := db.Open("sqlite:" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}
