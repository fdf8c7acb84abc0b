package recipe

import (
	"reflect"
	"strings"

	"recipe-agents/internal/core/sanitize"
	"recipe-agents/internal/core/table"
)

// 評審結果的處理方式
const (
	GuardLog    = "log"
	GuardRevert = "revert"
)

// IngredientSection 取出「Ingredients」標題後的表格區塊，找不到時返回 false
func IngredientSection(markdown string) (string, bool) {
	lines := strings.Split(strings.ReplaceAll(sanitize.SplitFence(markdown).Body, "\r\n", "\n"), "\n")

	start := -1
	for i, l := range lines {
		if isIngredientHeading(l) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return "", false
	}

	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}

	// 表格形式時遇到第一個非表格行就結束
	tableForm := start < len(lines) && strings.Contains(lines[start], "|")
	end := start
	for end < len(lines) {
		l := strings.TrimSpace(lines[end])
		if l == "" || strings.HasPrefix(l, "#") || (tableForm && !strings.Contains(l, "|")) {
			break
		}
		end++
	}
	if end == start {
		return "", false
	}
	return strings.Join(lines[start:end], "\n"), true
}

func isIngredientHeading(l string) bool {
	l = strings.TrimSpace(l)
	if l == "" || strings.Contains(l, "|") {
		return false
	}
	l = strings.ToLower(strings.Trim(l, "#*_: \t"))
	return strings.HasPrefix(l, "ingredients") || strings.HasPrefix(l, "quantified ingredients")
}

// UnverifiedDraft 初稿找不到食材段落時的說明
const UnverifiedDraft = "ingredient section not found in draft; invariant unverified"

// IngredientCheck 食材表比對結果
type IngredientCheck struct {
	// Verified 初稿有可辨識的食材段落，比對確實執行
	Verified bool
	// Problem 違規或無法驗證的說明，通過時為空
	Problem string
}

// Violated 比對已執行且發現改動；無法驗證不算違規
func (c IngredientCheck) Violated() bool {
	return c.Verified && c.Problem != ""
}

// CheckIngredients 確認評審沒有改動食材表。先逐位元組比較，不同時再比較解析後的資料列，
// 只有空白或對齊差異不算違規。
func CheckIngredients(draft, critique string) IngredientCheck {
	want, ok := IngredientSection(draft)
	if !ok {
		return IngredientCheck{Problem: UnverifiedDraft}
	}
	check := IngredientCheck{Verified: true}

	got, ok := IngredientSection(critique)
	switch {
	case !ok:
		check.Problem = "ingredient section missing from the critiqued recipe"
	case want == got:
	default:
		a, b := table.Parse(want), table.Parse(got)
		if !reflect.DeepEqual(a.Header, b.Header) {
			check.Problem = "ingredient table header changed"
		} else if !reflect.DeepEqual(a.Records(), b.Records()) {
			check.Problem = "ingredient table rows changed"
		}
	}
	return check
}
