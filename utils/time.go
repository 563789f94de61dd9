package utils

import (
	"strings"
	"time"
)

// DateLayout 向导中所有日期字段的格式
const DateLayout = "2006-01-02"

// ParseDate 解析日期字符串（格式：YYYY-MM-DD），空白视为未填写
func ParseDate(dateStr string) (time.Time, bool) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}, false
	}

	parsed, err := time.Parse(DateLayout, dateStr)
	if err != nil {
		return time.Time{}, false
	}

	return parsed, true
}

// ValidDateRange 起止日期都合法且开始不晚于结束
func ValidDateRange(start, end string) bool {
	from, ok := ParseDate(start)
	if !ok {
		return false
	}
	to, ok := ParseDate(end)
	if !ok {
		return false
	}
	return !from.After(to)
}
