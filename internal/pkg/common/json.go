package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// ErrTrailingJSON 第一個 JSON 值之後還有其他內容
var ErrTrailingJSON = errors.New("unexpected extra JSON data after the first value")

// ParseJSON 將恰好一個 JSON 值解碼到 v。數字保留為 json.Number，
// 值後面出現任何 token（包含 null）都視為錯誤。
func ParseJSON(data string, v interface{}) error {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return ErrTrailingJSON
	}
	return nil
}

// ToJSON 將結構體轉換為 JSON 字符串，不轉義 HTML 字元
func ToJSON(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
