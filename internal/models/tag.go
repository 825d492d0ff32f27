package models

import (
	"time"
)

// Tag 文章标签
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Slug      string    `gorm:"size:60;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}
