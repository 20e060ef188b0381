package utils

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// DateLayout 日期格式
const DateLayout = "2006-01-02"

var machineTagPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// CleanText 去除首尾空白和控制字符(保留换行符和制表符)
func CleanText(input string) string {
	var result strings.Builder
	for _, r := range strings.TrimSpace(input) {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}

// ReservedMachineTag 被路由占用的标签
const ReservedMachineTag = "all"

// ValidateMachineTag 验证机器外部 ID
func ValidateMachineTag(id string) error {
	// 1. 检查是否为空
	if strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}

	// 2. 检查格式（字母、数字、连字符、下划线和点）
	if !machineTagPattern.MatchString(id) {
		return ErrInvalidIDFormat
	}

	// 3. 检查长度（最大 64 字符）
	if len(id) > 64 {
		return ErrIDTooLong
	}

	// 4. 与 /machines/all 路由冲突
	if id == ReservedMachineTag {
		return ErrReservedID
	}

	return nil
}

// ValidateName 验证名称
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrEmptyName
	}
	if len(trimmed) > 255 {
		return ErrNameTooLong
	}
	return nil
}

// ParseDate 解析 YYYY-MM-DD 日期
func ParseDate(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, ErrEmptyDate
	}
	t, err := time.Parse(DateLayout, trimmed)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// ValidateDate 验证 YYYY-MM-DD 日期并返回规范形式
func ValidateDate(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}

// TrimAndValidate 清理并验证字符串
func TrimAndValidate(s string, maxLen int) (string, error) {
	cleaned := CleanText(s)
	if cleaned == "" {
		return "", ErrEmptyString
	}
	if maxLen > 0 && len(cleaned) > maxLen {
		return "", ErrStringTooLong
	}
	return cleaned, nil
}

// 错误定义
var (
	ErrEmptyName       = &ValidationError{Code: "EMPTY_NAME", Message: "name cannot be empty"}
	ErrNameTooLong     = &ValidationError{Code: "NAME_TOO_LONG", Message: "name exceeds maximum length"}
	ErrEmptyID         = &ValidationError{Code: "EMPTY_ID", Message: "id cannot be empty"}
	ErrInvalidIDFormat = &ValidationError{Code: "INVALID_ID_FORMAT", Message: "id contains invalid characters"}
	ErrIDTooLong       = &ValidationError{Code: "ID_TOO_LONG", Message: "id exceeds maximum length"}
	ErrReservedID      = &ValidationError{Code: "RESERVED_ID", Message: "id is reserved"}
	ErrEmptyString     = &ValidationError{Code: "EMPTY_STRING", Message: "string cannot be empty"}
	ErrStringTooLong   = &ValidationError{Code: "STRING_TOO_LONG", Message: "string exceeds maximum length"}
	ErrEmptyDate       = &ValidationError{Code: "EMPTY_DATE", Message: "date cannot be empty"}
	ErrInvalidDate     = &ValidationError{Code: "INVALID_DATE", Message: "date must use the YYYY-MM-DD format"}
)

// ValidationError 验证错误
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
