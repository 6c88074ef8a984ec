package registry

import (
	"errors"
	"fmt"
	"strings"
)

// 校验错误，均在写入存储之前返回
var (
	ErrURLRequired      = errors.New("URL 不能为空")
	ErrInvalidURL       = errors.New("请输入合法的 http/https URL")
	ErrInvalidValidity  = errors.New("有效期必须是正数（分钟）")
	ErrInvalidShortcode = errors.New("短码只能包含字母和数字，且不超过 10 个字符")
	ErrShortcodeTaken   = errors.New("短码已被占用")
	ErrDuplicateInBatch = errors.New("本次提交中存在重复的短码")
	ErrEmptyBatch       = errors.New("至少需要提交一条 URL")
	ErrBatchTooLarge    = errors.New("一次提交的 URL 数量超过上限")
)

var (
	// ErrGenerateExhausted 自动生成的短码连续冲突
	ErrGenerateExhausted = errors.New("多次生成短码均发生冲突")
	// ErrStorage 写入存储失败
	ErrStorage = errors.New("保存短链接失败")
)

// BatchError 批量创建的校验结果。Entries 与请求一一对应，合法的条目为 nil；
// Err 为整批的错误（数量不合法、批内重复等）
type BatchError struct {
	Entries []error
	Err     error
}

func (e *BatchError) Error() string {
	var parts []string
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	for i, err := range e.Entries {
		if err != nil {
			parts = append(parts, fmt.Sprintf("第 %d 条: %v", i+1, err))
		}
	}
	return strings.Join(parts, "; ")
}

func (e *BatchError) Unwrap() []error {
	var errs []error
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	for _, err := range e.Entries {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
