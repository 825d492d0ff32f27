package services

import (
	"testing"

	"arcadepress/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createUser(t *testing.T, conn *gorm.DB, uid, login string) *models.User {
	t.Helper()
	u := &models.User{UID: uid, Username: login, Role: models.RoleUser}
	require.NoError(t, conn.Create(u).Error)
	return u
}

func createAdmin(t *testing.T, conn *gorm.DB, uid, login string) *models.User {
	t.Helper()
	u := &models.User{UID: uid, Username: login, Role: models.RoleAdmin}
	require.NoError(t, conn.Create(u).Error)
	return u
}
