package table

import (
	"fmt"
	"regexp"
	"strings"
)

// Row 一列資料，欄位名稱來自表頭
type Row map[string]string

// Diagnostic 解析過程中被略過的行
type Diagnostic struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
	Text   string `json:"text"`
}

// Table 解析結果
type Table struct {
	Header      []string     `json:"header"`
	Rows        []Row        `json:"rows"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// DefectError 無法從來源文字還原任何資料列
type DefectError struct {
	Diagnostics []Diagnostic
}

func (e *DefectError) Error() string {
	if len(e.Diagnostics) == 0 {
		return "no table rows recovered"
	}
	return fmt.Sprintf("no table rows recovered (%d lines skipped, first: %s)",
		len(e.Diagnostics), e.Diagnostics[0].Reason)
}

var (
	// 來源標記，例如 [cite: 3]、[cite_start]、[source: ingredients.csv]、【12†source】
	noisePattern = regexp.MustCompile(`(?i)\[\s*(?:cite|cite_start|cite_end|source|src|ref)\b[^\]\n]*\]|【[^】\n]*】`)
	// 分隔線：至少三個連續減號
	dashRun = regexp.MustCompile(`-{3,}`)
)

// StripNoise 移除來源標記，重複處理到沒有變化為止，巢狀標記也會被清除
func StripNoise(raw string) string {
	for {
		stripped := noisePattern.ReplaceAllString(raw, "")
		if stripped == raw {
			return stripped
		}
		raw = stripped
	}
}

type line struct {
	no   int
	text string
}

// Parse 將帶雜訊的管線分隔文字解析為資料列，永不 panic 也不返回錯誤。
// 無法還原的情況以空結果加 Diagnostics 表示，呼叫者可透過 Defect 取得錯誤。
func Parse(raw string) *Table {
	t := &Table{Rows: []Row{}}

	lines := cleanLines(raw)
	if len(lines) == 0 {
		return t
	}

	headerIdx, dataStart := locateHeader(lines)
	if headerIdx < 0 {
		return t
	}
	t.Header = uniqueNames(SplitCells(lines[headerIdx].text))

	for _, ln := range lines[dataStart:] {
		if IsSeparator(ln.text) {
			continue
		}
		cells := SplitCells(ln.text)
		switch {
		case len(cells) == len(t.Header):
			row := make(Row, len(cells))
			for i, name := range t.Header {
				row[name] = cells[i]
			}
			t.Rows = append(t.Rows, row)
		case len(cells) < len(t.Header):
			t.Diagnostics = append(t.Diagnostics, Diagnostic{
				Line:   ln.no,
				Reason: fmt.Sprintf("broken row: %d cells, header has %d", len(cells), len(t.Header)),
				Text:   ln.text,
			})
		default:
			t.Diagnostics = append(t.Diagnostics, Diagnostic{
				Line:   ln.no,
				Reason: fmt.Sprintf("too many cells: %d, header has %d", len(cells), len(t.Header)),
				Text:   ln.text,
			})
		}
	}

	return t
}

// Defect 沒有任何資料列時返回 *DefectError
func (t *Table) Defect() error {
	if t == nil || len(t.Rows) == 0 {
		var diags []Diagnostic
		if t != nil {
			diags = t.Diagnostics
		}
		return &DefectError{Diagnostics: diags}
	}
	return nil
}

// Records 依表頭順序輸出每列的值
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make([]string, len(t.Header))
		for i, name := range t.Header {
			rec[i] = row[name]
		}
		out = append(out, rec)
	}
	return out
}

// cleanLines 去除雜訊標記、空白行與只有分隔符號的行
func cleanLines(raw string) []line {
	raw = strings.ReplaceAll(StripNoise(raw), "\r\n", "\n")

	var out []line
	for i, text := range strings.Split(raw, "\n") {
		text = strings.TrimSpace(text)
		if text == "" || strings.Trim(text, "| \t") == "" {
			continue
		}
		out = append(out, line{no: i + 1, text: text})
	}
	return out
}

// locateHeader 返回表頭索引與資料起始索引
func locateHeader(lines []line) (int, int) {
	for i, ln := range lines {
		if !strings.Contains(ln.text, "|") || !dashRun.MatchString(ln.text) {
			continue
		}
		if i > 0 {
			return i - 1, i + 1
		}
		// 分隔線在最前面，改用下一行當表頭
		if len(lines) > 1 {
			return 1, 2
		}
		return -1, 0
	}
	return 0, 1
}

// uniqueNames 重複的欄名加上 _2、_3 後綴，避免同名欄位互相覆蓋
func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, len(names))
	for i, name := range names {
		candidate := name
		for n := 2; seen[candidate]; n++ {
			candidate = fmt.Sprintf("%s_%d", name, n)
		}
		seen[candidate] = true
		out[i] = candidate
	}
	return out
}

// IsSeparator 判斷是否為只含分隔樣式的行，例如 |---|:---:|
func IsSeparator(text string) bool {
	if !dashRun.MatchString(text) {
		return false
	}
	return strings.Trim(text, "|-: \t") == ""
}

// SplitCells 去除首尾各一個管線符號後切分，\| 視為字面上的管線符號
func SplitCells(text string) []string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "|")
	if strings.HasSuffix(text, "|") && !strings.HasSuffix(text, `\|`) {
		text = strings.TrimSuffix(text, "|")
	}

	var (
		cells []string
		cur   strings.Builder
	)
	for i := 0; i < len(text); i++ {
		switch {
		case text[i] == '\\' && i+1 < len(text) && text[i+1] == '|':
			cur.WriteByte('|')
			i++
		case text[i] == '|':
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(text[i])
		}
	}
	cells = append(cells, strings.TrimSpace(cur.String()))
	return cells
}
