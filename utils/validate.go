package utils

import (
	"regexp"
	"strings"
)

var (
	// 国际号码，可带 +、空格和连字符
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 \-]{6,18}[0-9]$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(strings.TrimSpace(phone))
}

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// ValidateContact 紧急联系方式：电话或邮箱
func ValidateContact(contact string) bool {
	return ValidatePhone(contact) || ValidateEmail(contact)
}

// IsBlank 去掉首尾空白后是否为空
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
