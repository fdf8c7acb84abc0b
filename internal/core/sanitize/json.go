package sanitize

import (
	"errors"
	"fmt"

	"recipe-agents/internal/pkg/common"
)

// MalformedOutputError 生成結果無法解碼為宣告的結構，保留原始文字供診斷
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed structured output: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}

// ErrEmptyOutput 去除圍欄後沒有任何內容
var ErrEmptyOutput = errors.New("empty output")

// DecodeJSON 去除選擇性圍欄後嚴格解碼到 out，不做任何修補
func DecodeJSON(text string, out interface{}) error {
	body := SplitFence(text).Body
	if body == "" {
		return &MalformedOutputError{Raw: text, Err: ErrEmptyOutput}
	}
	if err := common.ParseJSON(body, out); err != nil {
		return &MalformedOutputError{Raw: text, Err: err}
	}
	return nil
}

// ForJSON 解碼為通用值（物件、陣列、json.Number 等）
func ForJSON(text string) (interface{}, error) {
	var v interface{}
	if err := DecodeJSON(text, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Malformed 以驗證錯誤建立 MalformedOutputError，用於形狀檢查失敗
func Malformed(raw string, format string, args ...interface{}) error {
	return &MalformedOutputError{Raw: raw, Err: fmt.Errorf(format, args...)}
}
