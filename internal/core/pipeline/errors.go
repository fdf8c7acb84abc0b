package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recipe-agents/internal/pkg/common"
)

// Kind 管線錯誤與警告的分類
type Kind string

const (
	KindInvalidRequest      Kind = common.ErrCodeInvalidRequest
	KindParseDefect         Kind = common.ErrCodeParseDefect
	KindGenerativeCall      Kind = common.ErrCodeGenerativeCall
	KindMalformedOutput     Kind = common.ErrCodeMalformedOutput
	KindUnverifiedInvariant Kind = common.ErrCodeUnverifiedInvariant
	// KindInternal 模板缺少綁定等設定問題，不應在正常請求中出現
	KindInternal Kind = common.ErrCodeInternalError
)

// Error 中止執行的錯誤，附帶失敗階段與已完成階段的稽核紀錄
type Error struct {
	Kind     Kind
	RunID    string
	Pipeline string
	Stage    string
	Message  string
	// Problems 請求驗證失敗的欄位
	Problems []string
	// Raw 無法解析的生成原文
	Raw   string
	Err   error
	Audit []AuditEntry
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("pipeline ")
	b.WriteString(e.Pipeline)
	if e.Stage != "" {
		b.WriteString(": stage ")
		b.WriteString(e.Stage)
	}
	b.WriteString(": ")
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout 生成呼叫是否因期限而失敗
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// KindOf 取得錯誤分類，非管線錯誤返回空字串
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func invalidRequest(pipeline string, problems []string) *Error {
	return &Error{
		Kind:     KindInvalidRequest,
		Pipeline: pipeline,
		Message:  fmt.Sprintf("invalid request: %s", strings.Join(problems, "; ")),
		Problems: problems,
		Audit:    []AuditEntry{},
	}
}

// Warning 不中止執行的問題，隨結果返回
type Warning struct {
	Kind    Kind   `json:"kind"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
}
