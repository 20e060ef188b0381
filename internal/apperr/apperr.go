package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind string

const (
	KindValidation   Kind = "validation"    // 缺少或格式错误的输入
	KindNotFound     Kind = "not_found"     // 引用的机器/维护记录不存在
	KindConflict     Kind = "conflict"      // 违反生命周期约束
	KindInvalidField Kind = "invalid_field" // 字段不在允许更新列表中
	KindStorage      Kind = "storage"       // 底层存储失败
)

// Error 业务错误
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 同类别错误视为相等,支持 errors.Is(err, apperr.ErrConflict)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// 哨兵错误,仅用于 errors.Is 比较
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrInvalidField = &Error{Kind: KindInvalidField}
	ErrStorage      = &Error{Kind: KindStorage}
)

// Validation 创建校验错误
func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound 创建不存在错误
func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict 创建冲突错误
func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// InvalidField 创建非法字段错误
func InvalidField(field string) error {
	return &Error{Kind: KindInvalidField, Message: fmt.Sprintf("field %q is not allowed to be updated", field)}
}

// Storage 包装存储错误
func Storage(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Kind: KindStorage, Message: message, Err: err}
}

// KindOf 获取错误类别,非业务错误返回 KindStorage
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStorage
}
