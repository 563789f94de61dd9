package wizard

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Purpose 访问目的，决定步骤序列和领域数据的形状
type Purpose string

const (
	PurposeStudy  Purpose = "study"
	PurposeTravel Purpose = "travel"
	PurposeJob    Purpose = "job"
	PurposeLiving Purpose = "living"
)

// Period 停留时长分档
type Period string

const (
	PeriodShort  Period = "short"
	PeriodMedium Period = "medium"
	PeriodLong   Period = "long"
)

// Purposes 返回所有支持的目的（固定顺序）
func Purposes() []Purpose {
	return []Purpose{PurposeStudy, PurposeTravel, PurposeJob, PurposeLiving}
}

// ParsePurpose 解析目的字符串，大小写和首尾空白不敏感
func ParsePurpose(raw string) (Purpose, bool) {
	p := Purpose(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case PurposeStudy, PurposeTravel, PurposeJob, PurposeLiving:
		return p, true
	default:
		return "", false
	}
}

// Valid 是否为已知目的
func (p Purpose) Valid() bool {
	switch p {
	case PurposeStudy, PurposeTravel, PurposeJob, PurposeLiving:
		return true
	default:
		return false
	}
}

func (p Purpose) String() string {
	return string(p)
}

// capitalizeFirst "travel" -> "Travel"
func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
