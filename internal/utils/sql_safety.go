package utils

import (
	"errors"
	"regexp"
	"strings"
)

var sortFieldPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateSortField 验证排序字段，只接受白名单中的字段
func ValidateSortField(field string, allowed map[string]string) (string, error) {
	if field == "" {
		return "", errors.New("sort field cannot be empty")
	}

	// 只允许字母、数字和下划线
	if !sortFieldPattern.MatchString(field) {
		return "", errors.New("invalid sort field format")
	}

	column, ok := allowed[strings.ToLower(field)]
	if !ok {
		return "", errors.New("sort field is not allowed: " + field)
	}
	return column, nil
}

// ValidateSortOrder 验证排序方向
func ValidateSortOrder(order string) error {
	upperOrder := strings.ToUpper(strings.TrimSpace(order))
	if upperOrder != "ASC" && upperOrder != "DESC" {
		return errors.New("sort order must be ASC or DESC")
	}
	return nil
}

// SanitizeSortOrder 清理排序方向
func SanitizeSortOrder(order string) string {
	upperOrder := strings.ToUpper(strings.TrimSpace(order))
	if upperOrder == "ASC" || upperOrder == "DESC" {
		return upperOrder
	}
	return "ASC"
}

// EscapeLike 转义 LIKE 通配符
func EscapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
