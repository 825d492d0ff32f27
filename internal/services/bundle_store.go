package services

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	gamesDir  = "games"
	playDir   = "play"
	EntryFile = "index.html"

	// 解压后的总大小与文件数上限，防止压缩炸弹
	maxExtractedBytes = 256 << 20
	maxArchiveEntries = 10000
)

var (
	ErrArchiveTooLarge   = errors.New("archive exceeds size limit")
	ErrCorruptArchive    = errors.New("archive is corrupt or not a zip file")
	ErrUnsafeArchivePath = errors.New("archive entry escapes extraction directory")
)

// BundleStore 管理 MEDIA_ROOT/games/<slug>/ 下的游戏文件：
//
//	games/<slug>/<name>.zip   上传的原始压缩包
//	games/<slug>/play/...     解压后的静态文件
//
// 新文件先解压到 games/.staging-<uuid>，确认无误后整体替换 games/<slug>。
type BundleStore struct {
	root       string
	maxArchive int64
}

func NewBundleStore(root string, maxArchive int64) *BundleStore {
	return &BundleStore{root: root, maxArchive: maxArchive}
}

// Dir 返回游戏目录的绝对路径
func (s *BundleStore) Dir(slug string) string {
	return filepath.Join(s.root, gamesDir, slug)
}

func (s *BundleStore) MaxArchiveBytes() int64 {
	return s.maxArchive
}

// Stage 写入压缩包并完整解压到临时目录。任何错误都会清理临时目录
func (s *BundleStore) Stage(filename string, r io.Reader) (*StagedBundle, error) {
	base := filepath.Join(s.root, gamesDir)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create games dir: %w", err)
	}

	staging := filepath.Join(base, ".staging-"+uuid.NewString())
	if err := os.Mkdir(staging, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	b := &StagedBundle{store: s, dir: staging, ArchiveName: archiveName(filename)}
	if err := b.fill(r); err != nil {
		_ = os.RemoveAll(staging)
		return nil, err
	}
	return b, nil
}

// Remove 删除整个游戏目录，目录不存在时什么也不做
func (s *BundleStore) Remove(slug string) error {
	if slug == "" || strings.HasPrefix(slug, ".") || strings.ContainsAny(slug, `/\`) {
		return fmt.Errorf("refusing to remove game dir for slug %q", slug)
	}
	if err := os.RemoveAll(s.Dir(slug)); err != nil {
		return fmt.Errorf("remove game dir: %w", err)
	}
	return nil
}

// StagedBundle 已解压但尚未放到最终位置的游戏包
type StagedBundle struct {
	store       *BundleStore
	dir         string
	ArchiveName string
	HasEntry    bool
}

// ArchivePath 提交到 slug 之后压缩包相对 media root 的路径
func (b *StagedBundle) ArchivePath(slug string) string {
	return path.Join(gamesDir, slug, b.ArchiveName)
}

// EntryPath 没有根目录 index.html 时返回空串
func (b *StagedBundle) EntryPath(slug string) string {
	if !b.HasEntry {
		return ""
	}
	return path.Join(gamesDir, slug, playDir, EntryFile)
}

// Install 用暂存目录替换 games/<slug>。旧目录先移到 .trash-<uuid>，
// 记录写入成功后调用 Finish 删除旧目录，失败时调用 Revert 恢复
func (b *StagedBundle) Install(slug string) (*InstalledBundle, error) {
	inst := &InstalledBundle{final: b.store.Dir(slug)}

	if _, err := os.Stat(inst.final); err == nil {
		inst.trash = filepath.Join(filepath.Dir(inst.final), ".trash-"+uuid.NewString())
		if err := os.Rename(inst.final, inst.trash); err != nil {
			return nil, fmt.Errorf("move old game dir: %w", err)
		}
	}

	if err := os.Rename(b.dir, inst.final); err != nil {
		if inst.trash != "" {
			_ = os.Rename(inst.trash, inst.final)
		}
		return nil, fmt.Errorf("install game dir: %w", err)
	}
	return inst, nil
}

// InstalledBundle 已放到最终位置、旧目录尚未删除的游戏包
type InstalledBundle struct {
	final string
	trash string
}

// Finish 删除被替换的旧目录
func (i *InstalledBundle) Finish() error {
	if i.trash == "" {
		return nil
	}
	return os.RemoveAll(i.trash)
}

// Revert 删除新目录并放回旧目录
func (i *InstalledBundle) Revert() error {
	if err := os.RemoveAll(i.final); err != nil {
		return fmt.Errorf("remove installed game dir: %w", err)
	}
	if i.trash == "" {
		return nil
	}
	if err := os.Rename(i.trash, i.final); err != nil {
		return fmt.Errorf("restore old game dir: %w", err)
	}
	return nil
}

// Discard 放弃暂存内容
func (b *StagedBundle) Discard() error {
	return os.RemoveAll(b.dir)
}

func (b *StagedBundle) fill(r io.Reader) error {
	archive := filepath.Join(b.dir, b.ArchiveName)
	f, err := os.Create(archive)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(r, b.store.maxArchive+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	if n > b.store.maxArchive {
		return ErrArchiveTooLarge
	}

	if err := extractZip(archive, filepath.Join(b.dir, playDir)); err != nil {
		return err
	}

	info, err := os.Stat(filepath.Join(b.dir, playDir, EntryFile))
	b.HasEntry = err == nil && info.Mode().IsRegular()
	return nil
}

func extractZip(src, dest string) error {
	zr, err := zip.OpenReader(src)
	if errors.Is(err, zip.ErrInsecurePath) {
		zr.Close()
		return fmt.Errorf("%w: %v", ErrUnsafeArchivePath, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	defer zr.Close()

	if len(zr.File) > maxArchiveEntries {
		return fmt.Errorf("%w: too many entries", ErrArchiveTooLarge)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	var remaining int64 = maxExtractedBytes
	for _, f := range zr.File {
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return err
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrCorruptArchive, f.Name, err)
			}
		case mode&os.ModeSymlink != 0:
			// 不解压符号链接
			continue
		default:
			// 同名的文件和目录冲突等布局问题都按压缩包损坏处理
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrCorruptArchive, f.Name, err)
			}
			n, err := extractFile(f, target, remaining)
			if err != nil {
				return err
			}
			remaining -= n
		}
	}
	return nil
}

func extractFile(f *zip.File, target string, limit int64) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, f.Name, err)
	}
	n, err := io.Copy(out, io.LimitReader(rc, limit+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("%w: %s: %v", ErrCorruptArchive, f.Name, err)
	}
	if n > limit {
		return n, fmt.Errorf("%w: extracted content too large", ErrArchiveTooLarge)
	}
	return n, nil
}

// safeJoin 拒绝绝对路径和 ".." 等逃逸出 dest 的条目 (zip slip)
func safeJoin(dest, name string) (string, error) {
	local := filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchivePath, name)
	}
	target := filepath.Join(dest, local)
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchivePath, name)
	}
	return target, nil
}

func archiveName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == "/" || name == "" || name == playDir {
		return "game.zip"
	}
	return name
}
