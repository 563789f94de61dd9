package wizard

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// DefaultSupportedLanguages UI 语言白名单的默认值
var DefaultSupportedLanguages = []string{"ko", "en", "ja", "zh", "vi"}

// LanguageResolver 判断 UI 语言是否受支持，并给出系统首选语言
type LanguageResolver struct {
	supported []string
	set       map[string]struct{}
	preferred string
}

// NewLanguageResolver supported 为空时使用默认白名单；
// system 可以是 BCP 47 标签，也可以是 LANG 风格的 "en_US.UTF-8"
func NewLanguageResolver(supported []string, system string) *LanguageResolver {
	r := &LanguageResolver{set: make(map[string]struct{})}
	for _, code := range supported {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if _, dup := r.set[code]; dup {
			continue
		}
		r.set[code] = struct{}{}
		r.supported = append(r.supported, code)
	}
	if len(r.supported) == 0 {
		return NewLanguageResolver(DefaultSupportedLanguages, system)
	}
	r.preferred = r.match(system)
	return r
}

// IsValid 语言代码是否在白名单内（大小写不敏感）
func (r *LanguageResolver) IsValid(code string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return false
	}
	_, ok := r.set[code]
	return ok
}

// Preferred 系统首选语言，恒为白名单中的一项
func (r *LanguageResolver) Preferred() string {
	return r.preferred
}

// Supported 白名单副本
func (r *LanguageResolver) Supported() []string {
	out := make([]string, len(r.supported))
	copy(out, r.supported)
	return out
}

func (r *LanguageResolver) match(system string) string {
	tag, ok := parseSystemTag(system)
	if !ok {
		return r.supported[0]
	}

	tags := make([]language.Tag, 0, len(r.supported))
	for _, code := range r.supported {
		parsed, err := language.Parse(code)
		if err != nil {
			parsed = language.Und
		}
		tags = append(tags, parsed)
	}

	_, index, confidence := language.NewMatcher(tags).Match(tag)
	if confidence == language.No || index < 0 || index >= len(r.supported) {
		return r.supported[0]
	}
	return r.supported[index]
}

func parseSystemTag(raw string) (language.Tag, bool) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexAny(raw, ".@"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.ReplaceAll(raw, "_", "-")
	if raw == "" || strings.EqualFold(raw, "C") || strings.EqualFold(raw, "POSIX") {
		return language.Und, false
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// SystemLocale 读取进程环境中的语言设置
func SystemLocale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}
