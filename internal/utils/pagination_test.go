package utils_test

import (
	"fmt"
	"testing"

	"arcadepress/internal/db/dbtest"
	"arcadepress/internal/models"
	"arcadepress/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePage(t *testing.T) {
	assert.Equal(t, 1, utils.ParsePage(""))
	assert.Equal(t, 1, utils.ParsePage("abc"))
	assert.Equal(t, 1, utils.ParsePage("-3"))
	assert.Equal(t, 4, utils.ParsePage("4"))
}

func TestPaginate(t *testing.T) {
	conn := dbtest.New(t)
	for i := 0; i < 23; i++ {
		require.NoError(t, conn.Create(&models.Tag{Name: fmt.Sprintf("tag %02d", i), Slug: fmt.Sprintf("tag-%02d", i)}).Error)
	}
	base := conn.Model(&models.Tag{}).Order("name")

	page, err := utils.Paginate[models.Tag](base, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, int64(23), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.False(t, page.HasPrev())
	assert.True(t, page.HasNext())
	assert.Equal(t, "tag 00", page.Items[0].Name)

	// 超出范围收敛到最后一页
	page, err = utils.Paginate[models.Tag](base, 9, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Number)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, "tag 20", page.Items[0].Name)
	assert.False(t, page.HasNext())
}

func TestPaginate_Empty(t *testing.T) {
	conn := dbtest.New(t)

	page, err := utils.Paginate[models.Game](conn.Model(&models.Game{}), 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, 1, page.TotalPages)
	assert.Empty(t, page.Items)
}
