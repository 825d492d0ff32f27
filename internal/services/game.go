package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"arcadepress/internal/apperror"
	"arcadepress/internal/metrics"
	"arcadepress/internal/models"
	"arcadepress/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArchiveUpload 上传的 ZIP 文件
type ArchiveUpload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// GameSubmission 上传/编辑表单
type GameSubmission struct {
	Title       string         `form:"title" validate:"required,max=200"`
	Description string         `form:"description" validate:"max=10000"`
	URL         string         `form:"url" validate:"omitempty,max=200,url,webscheme"`
	Archive     *ArchiveUpload `form:"zip_file" validate:"-"`
}

type GameService struct {
	db    *gorm.DB
	store *BundleStore
	log   *slog.Logger
}

func NewGameService(db *gorm.DB, store *BundleStore, log *slog.Logger) *GameService {
	return &GameService{db: db, store: store, log: log}
}

// ValidateSubmission 逐条检查规则，每条违规一条提示。
// requireSource 为 false 时（编辑）允许不提交新的来源，保留原有来源
func (s *GameService) ValidateSubmission(sub GameSubmission, requireSource bool) error {
	errs := validateStruct(sub)

	hasArchive := sub.Archive != nil
	hasURL := strings.TrimSpace(sub.URL) != ""

	if hasArchive {
		if !strings.HasSuffix(strings.ToLower(sub.Archive.Filename), ".zip") {
			errs.Add("zip_file", "Uploaded file must be a ZIP archive.")
		}
		if sub.Archive.Size > s.store.MaxArchiveBytes() {
			errs.Add("zip_file", s.sizeLimitMessage())
		}
	}

	switch {
	case hasArchive && hasURL:
		errs.Add("__all__", "You cannot provide both a ZIP file and a game URL.")
	case !hasArchive && !hasURL && requireSource:
		errs.Add("__all__", "You must upload a ZIP file or provide a game URL.")
	}
	return errs.Err()
}

// Create 校验 -> 解压到暂存目录 -> 事务内分配 slug、写记录、放置文件。
// 压缩包损坏时不会写入任何记录，也不会留下目录
func (s *GameService) Create(ctx context.Context, owner *models.User, sub GameSubmission) (*models.Game, error) {
	source := submissionSource(sub)
	if err := s.ValidateSubmission(sub, true); err != nil {
		metrics.GameIngestionsTotal.WithLabelValues(source, metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	staged, err := s.stage(sub)
	if err != nil {
		metrics.GameIngestionsTotal.WithLabelValues(source, metrics.OutcomeFailure).Inc()
		return nil, err
	}

	game := &models.Game{
		Title:       strings.TrimSpace(sub.Title),
		Description: strings.TrimSpace(sub.Description),
		URL:         strings.TrimSpace(sub.URL),
		UserID:      owner.ID,
	}

	var installed *InstalledBundle
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slug, err := utils.UniqueSlug(utils.Slugify(game.Title), "game", slugTaken(tx, &models.Game{}))
		if err != nil {
			return err
		}
		game.Slug = slug
		if staged != nil {
			game.ArchivePath = staged.ArchivePath(slug)
			game.EntryPath = staged.EntryPath(slug)
		}

		if err := tx.Create(game).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("game", slug)
			}
			return err
		}

		if staged != nil {
			installed, err = staged.Install(slug)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.abandon(game.Slug, staged, installed)
		metrics.GameIngestionsTotal.WithLabelValues(source, metrics.OutcomeFailure).Inc()
		return nil, err
	}
	s.finish(game.Slug, installed)

	metrics.GameIngestionsTotal.WithLabelValues(source, metrics.OutcomeSuccess).Inc()
	s.log.Info("Game created",
		slog.String("slug", game.Slug),
		slog.Uint64("user_id", uint64(owner.ID)),
		slog.Bool("has_entry", game.EntryPath != ""),
	)
	return game, nil
}

// Update 仅作者可编辑。新压缩包替换旧文件；改为外部链接时删除旧文件；
// 两者都未提交时保留原来源。slug 不随标题变化
func (s *GameService) Update(ctx context.Context, actor *models.User, slug string, sub GameSubmission) (*models.Game, error) {
	game, err := s.GetOwned(ctx, actor, slug)
	if err != nil {
		return nil, err
	}

	source := submissionSource(sub)
	if err := s.ValidateSubmission(sub, false); err != nil {
		metrics.GameIngestionsTotal.WithLabelValues(source, metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	staged, err := s.stage(sub)
	if err != nil {
		metrics.GameIngestionsTotal.WithLabelValues(source, metrics.OutcomeFailure).Inc()
		return nil, err
	}

	updated := *game
	updated.Title = strings.TrimSpace(sub.Title)
	updated.Description = strings.TrimSpace(sub.Description)

	dropTree := false
	url := strings.TrimSpace(sub.URL)
	switch {
	case staged != nil:
		updated.ArchivePath = staged.ArchivePath(game.Slug)
		updated.EntryPath = staged.EntryPath(game.Slug)
		updated.URL = ""
	case url != "":
		dropTree = game.HasArchive()
		updated.ArchivePath = ""
		updated.EntryPath = ""
		updated.URL = url
	}

	// 新文件先就位，旧目录保留到事务提交之后
	var installed *InstalledBundle
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if staged != nil {
			var err error
			if installed, err = staged.Install(game.Slug); err != nil {
				return err
			}
		}
		return tx.Omit(clause.Associations).Save(&updated).Error
	})
	if err != nil {
		s.abandon(game.Slug, staged, installed)
		metrics.GameIngestionsTotal.WithLabelValues(source, metrics.OutcomeFailure).Inc()
		return nil, err
	}
	s.finish(game.Slug, installed)

	if dropTree {
		if err := s.store.Remove(game.Slug); err != nil {
			s.log.Warn("Failed to remove replaced game files", slog.String("slug", game.Slug), slog.Any("error", err))
		}
	}

	if source != "none" {
		metrics.GameIngestionsTotal.WithLabelValues(source, metrics.OutcomeSuccess).Inc()
	}
	return &updated, nil
}

// Delete 先删除磁盘目录再删除记录；目录已不存在时照常删除记录
func (s *GameService) Delete(ctx context.Context, actor *models.User, slug string) error {
	game, err := s.GetOwned(ctx, actor, slug)
	if err != nil {
		return err
	}

	if err := s.store.Remove(game.Slug); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("game_id = ?", game.ID).Update("game_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(game).Error
	})
}

// SetApproval 管理员审核
func (s *GameService) SetApproval(ctx context.Context, actor *models.User, slug string, approved bool) (*models.Game, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("only administrators can approve games")
	}
	game, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(game).UpdateColumn("is_approved", approved).Error; err != nil {
		return nil, err
	}
	game.IsApproved = approved
	s.log.Info("Game approval changed", slog.String("slug", slug), slog.Bool("approved", approved), slog.String("by", actor.Username))
	return game, nil
}

func (s *GameService) GetBySlug(ctx context.Context, slug string) (*models.Game, error) {
	var game models.Game
	err := s.db.WithContext(ctx).Preload("User").Where("slug = ?", slug).First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("game", slug)
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// GetOwned 只返回 actor 自己的游戏，否则按不存在处理
func (s *GameService) GetOwned(ctx context.Context, actor *models.User, slug string) (*models.Game, error) {
	game, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if actor == nil || game.UserID != actor.ID {
		return nil, apperror.NotFound("game", slug)
	}
	return game, nil
}

// GetPlayable 已审核的游戏所有人可见；未审核的只有作者可见
func (s *GameService) GetPlayable(ctx context.Context, slug string, viewer *models.User) (*models.Game, error) {
	game, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !game.IsApproved && (viewer == nil || viewer.ID != game.UserID) {
		return nil, apperror.NotFound("game", slug)
	}
	return game, nil
}

func (s *GameService) ListApproved(ctx context.Context, page int) (utils.Page[models.Game], error) {
	q := s.db.WithContext(ctx).Model(&models.Game{}).Where("is_approved = ?", true).Order("created_at DESC")
	return utils.Paginate[models.Game](q, page, utils.DefaultPerPage, "User")
}

func (s *GameService) ListPending(ctx context.Context, page int) (utils.Page[models.Game], error) {
	q := s.db.WithContext(ctx).Model(&models.Game{}).Where("is_approved = ?", false).Order("created_at ASC")
	return utils.Paginate[models.Game](q, page, utils.DefaultPerPage, "User")
}

func (s *GameService) ListByOwner(ctx context.Context, userID uint) ([]models.Game, error) {
	var games []models.Game
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&games).Error
	return games, err
}

func (s *GameService) Latest(ctx context.Context, n int) ([]models.Game, error) {
	var games []models.Game
	err := s.db.WithContext(ctx).Preload("User").
		Where("is_approved = ?", true).
		Order("created_at DESC").Limit(n).Find(&games).Error
	return games, err
}

func (s *GameService) stage(sub GameSubmission) (*StagedBundle, error) {
	if sub.Archive == nil {
		return nil, nil
	}
	staged, err := s.store.Stage(sub.Archive.Filename, sub.Archive.Reader)
	if err != nil {
		s.log.Warn("Game archive rejected", slog.String("file", sub.Archive.Filename), slog.Any("error", err))
		switch {
		case errors.Is(err, ErrCorruptArchive), errors.Is(err, ErrUnsafeArchivePath):
			return nil, apperror.ValidationFailed("zip_file", "The uploaded file is not a valid ZIP archive.")
		case errors.Is(err, ErrArchiveTooLarge):
			return nil, apperror.ValidationFailed("zip_file", s.sizeLimitMessage())
		}
		return nil, err
	}
	return staged, nil
}

// abandon 事务失败后清理：已就位的新目录撤回并恢复旧目录，否则丢弃暂存目录
func (s *GameService) abandon(slug string, staged *StagedBundle, installed *InstalledBundle) {
	if installed != nil {
		if err := installed.Revert(); err != nil {
			s.log.Error("Failed to restore game dir", slog.String("slug", slug), slog.Any("error", err))
		}
		return
	}
	if staged != nil {
		_ = staged.Discard()
	}
}

func (s *GameService) finish(slug string, installed *InstalledBundle) {
	if installed == nil {
		return
	}
	if err := installed.Finish(); err != nil {
		s.log.Warn("Failed to remove replaced game files", slog.String("slug", slug), slog.Any("error", err))
	}
}

// MaxArchiveBytes 上传大小上限
func (s *GameService) MaxArchiveBytes() int64 {
	return s.store.MaxArchiveBytes()
}

func (s *GameService) sizeLimitMessage() string {
	return fmt.Sprintf("Max file size is %g MB", float64(s.store.MaxArchiveBytes())/(1<<20))
}

func submissionSource(sub GameSubmission) string {
	switch {
	case sub.Archive != nil:
		return "archive"
	case strings.TrimSpace(sub.URL) != "":
		return "url"
	}
	return "none"
}

// slugTaken 在同一事务内检查 slug 是否已被占用
func slugTaken(tx *gorm.DB, model any) func(string) (bool, error) {
	return func(slug string) (bool, error) {
		var n int64
		err := tx.Model(model).Where("slug = ?", slug).Count(&n).Error
		return n > 0, err
	}
}
