package db

import (
	"path/filepath"
	"testing"

	"arcadepress/internal/logger"
	"arcadepress/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_SeedsTagsOnce(t *testing.T) {
	dsn := "sqlite:" + filepath.Join(t.TempDir(), "app.db")

	conn, err := Init(dsn, logger.Discard())
	require.NoError(t, err)

	var count int64
	require.NoError(t, conn.Model(&models.Tag{}).Count(&count).Error)
	assert.Equal(t, int64(4), count)

	// 第二次启动不重复写入
	seedTags(conn, logger.Discard())
	require.NoError(t, conn.Model(&models.Tag{}).Count(&count).Error)
	assert.Equal(t, int64(4), count)
}
