package utils

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLen = 60

// 这些 slug 与固定路由冲突，永远不分配
var reservedSlugs = map[string]bool{
	"admin":    true,
	"login":    true,
	"logout":   true,
	"register": true,
	"create":   true,
	"edit":     true,
	"delete":   true,
	"public":   true,
}

func IsReservedSlug(slug string) bool {
	return reservedSlugs[slug]
}

// Slugify 把标题转换为 URL 安全的 slug：去掉重音符号，非字母数字折叠为单个 "-"
// "My Cool Game!" -> "my-cool-game"
func Slugify(title string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			if b.Len() >= maxSlugLen {
				break
			}
			continue
		}
		pendingDash = true
	}
	return strings.Trim(b.String(), "-")
}

// UniqueSlug 返回第一个未被占用的候选：base, base-2, base-3 ...
// 空 base 使用 fallback。taken 通常查询数据库
func UniqueSlug(base, fallback string, taken func(string) (bool, error)) (string, error) {
	if base == "" {
		base = fallback
	}
	for i := 1; i <= 1000; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		if IsReservedSlug(candidate) {
			continue
		}
		used, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free slug for %q", base)
}
