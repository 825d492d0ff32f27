package db

import (
	"fmt"
	"log/slog"
	"strings"

	"arcadepress/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite:"

// Open 根据 DSN 选择驱动：sqlite: 前缀使用纯 Go 的 sqlite，其余按 postgres 处理
func Open(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true, // 唯一索引冲突统一为 gorm.ErrDuplicatedKey
	}

	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, sqlitePrefix) {
		path := strings.TrimPrefix(dsn, sqlitePrefix)
		if !strings.Contains(path, "foreign_keys") {
			sep := "?"
			if strings.Contains(path, "?") {
				sep = "&"
			}
			path += sep + "_pragma=foreign_keys(1)"
		}
		dialector = sqlite.Open(path)
	} else {
		dialector = postgres.Open(dsn)
	}

	conn, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return conn, nil
}

// Migrate 自动迁移全部模型
func Migrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&models.User{},
		&models.Game{},
		&models.Tag{},
		&models.Post{},
		&models.Comment{},
		&models.Reaction{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// Init 连接、迁移并写入初始标签
func Init(dsn string, log *slog.Logger) (*gorm.DB, error) {
	conn, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	log.Info("Database connection established")

	if err := Migrate(conn); err != nil {
		return nil, err
	}
	log.Info("Database migration completed")

	seedTags(conn, log)
	return conn, nil
}

func seedTags(conn *gorm.DB, log *slog.Logger) {
	// 检查是否已有标签数据
	var count int64
	conn.Model(&models.Tag{}).Count(&count)
	if count > 0 {
		return
	}

	tags := []models.Tag{
		{Name: "Devlog", Slug: "devlog"},
		{Name: "Release", Slug: "release"},
		{Name: "Arcade", Slug: "arcade"},
		{Name: "Puzzle", Slug: "puzzle"},
	}
	for _, tag := range tags {
		if err := conn.Create(&tag).Error; err != nil {
			log.Warn("Failed to create tag", slog.String("tag", tag.Name), slog.Any("error", err))
		}
	}
	log.Info("Initial tags created")
}
