// Package sanitize 將生成服務的不可信輸出轉為結構化資料或可顯示文字
package sanitize

import (
	"regexp"
	"strings"
)

// Fenced 選擇性圍欄文字的解析結果
type Fenced struct {
	Body   string // 去除圍欄與前後空白後的內容
	Lang   string // 語言標籤，例如 json，沒有則為空
	Fenced bool   // 是否有開頭圍欄
	Closed bool   // 是否有結尾圍欄
}

var langTag = regexp.MustCompile(`^[A-Za-z0-9_+.#-]+$`)

// SplitFence 解析「可能被 ``` 或 ~~~ 包住」的文字。
// 開頭圍欄可帶語言標籤；缺少結尾圍欄（輸出被截斷）時仍去除開頭圍欄。
func SplitFence(text string) Fenced {
	s := strings.TrimSpace(text)

	marker := fenceRun(s)
	if marker == "" {
		return Fenced{Body: s}
	}

	f := Fenced{Fenced: true}
	rest := s[len(marker):]

	// 結尾圍欄
	trimmed := strings.TrimRightFunc(rest, isSpace)
	if strings.HasSuffix(trimmed, marker) {
		rest = strings.TrimSuffix(trimmed, marker)
		f.Closed = true
	}

	// 開頭行剩下的部分若是單一語言標籤則取出，否則視為內容
	firstLine, body, hasNewline := strings.Cut(rest, "\n")
	tag := strings.TrimSpace(firstLine)
	switch {
	case tag == "":
		rest = body
	case langTag.MatchString(tag) && hasNewline:
		f.Lang = strings.ToLower(tag)
		rest = body
	case !hasNewline:
		// 單行形式：```json {"a":1}```
		if name, content, ok := strings.Cut(tag, " "); ok && langTag.MatchString(name) && !strings.ContainsAny(name, "{[\"") {
			f.Lang = strings.ToLower(name)
			rest = content
		}
	}

	f.Body = strings.TrimSpace(rest)
	return f
}

// fenceRun 返回開頭的圍欄標記（三個以上的 ` 或 ~）
func fenceRun(s string) string {
	if len(s) < 3 || (s[0] != '`' && s[0] != '~') {
		return ""
	}
	n := 0
	for n < len(s) && s[n] == s[0] {
		n++
	}
	if n < 3 {
		return ""
	}
	return s[:n]
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
