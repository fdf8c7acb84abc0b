package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// placeholderPattern 佔位符語法 {{KEY}}
var placeholderPattern = regexp.MustCompile(`\{\{([A-Z0-9_]+)\}\}`)

// MissingBindingError 模板中有佔位符未綁定值
type MissingBindingError struct {
	Template string
	Keys     []string
}

func (e *MissingBindingError) Error() string {
	name := e.Template
	if name == "" {
		name = "template"
	}
	return fmt.Sprintf("%s: unbound placeholders: %s", name, strings.Join(e.Keys, ", "))
}

// Template 具名的提示詞模板
type Template struct {
	Name string
	Text string
}

// Render 以綁定值渲染模板
func (t *Template) Render(bindings map[string]string) (string, error) {
	out, err := Render(t.Text, bindings)
	if err != nil {
		if mb, ok := err.(*MissingBindingError); ok {
			mb.Template = t.Name
		}
		return "", err
	}
	return out, nil
}

// Placeholders 模板宣告的佔位符
func (t *Template) Placeholders() []string {
	return Placeholders(t.Text)
}

// Render 單次掃描替換所有 {{KEY}}。替換結果不會再被掃描，
// 所以綁定值中出現其他佔位符的文字時不會被二次展開。
// 任何佔位符缺少綁定都返回 *MissingBindingError，多餘的綁定直接忽略。
func Render(tmpl string, bindings map[string]string) (string, error) {
	if missing := missingKeys(tmpl, bindings); len(missing) > 0 {
		return "", &MissingBindingError{Keys: missing}
	}

	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		return bindings[m[2:len(m)-2]]
	}), nil
}

// Placeholders 依出現順序列出不重複的佔位符名稱
func Placeholders(tmpl string) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}

func missingKeys(tmpl string, bindings map[string]string) []string {
	var missing []string
	for _, key := range Placeholders(tmpl) {
		if _, ok := bindings[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}
