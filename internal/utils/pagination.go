package utils

import (
	"gorm.io/gorm"
)

const DefaultPerPage = 10

// Page 一页查询结果
type Page[T any] struct {
	Items      []T
	Number     int
	PerPage    int
	Total      int64
	TotalPages int
}

func (p Page[T]) HasPrev() bool { return p.Number > 1 }
func (p Page[T]) HasNext() bool { return p.Number < p.TotalPages }
func (p Page[T]) PrevNumber() int { return p.Number - 1 }
func (p Page[T]) NextNumber() int { return p.Number + 1 }

// ParsePage 解析 ?page= 参数，非法值视为第一页
func ParsePage(s string) int {
	page := StringToInt(s)
	if page < 1 {
		return 1
	}
	return page
}

// Paginate 统计总数并取出第 page 页。超出范围的页码收敛到最后一页。
// query 不应带 Preload，预加载通过 preloads 传入
func Paginate[T any](query *gorm.DB, page, perPage int, preloads ...string) (Page[T], error) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page < 1 {
		page = 1
	}

	q := query.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return Page[T]{}, err
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	find := q
	for _, p := range preloads {
		find = find.Preload(p)
	}

	items := make([]T, 0, perPage)
	if err := find.Limit(perPage).Offset((page - 1) * perPage).Find(&items).Error; err != nil {
		return Page[T]{}, err
	}

	return Page[T]{
		Items:      items,
		Number:     page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}
