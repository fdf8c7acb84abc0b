package sanitize

import (
	"strings"

	"recipe-agents/internal/core/table"
)

// 整份內容被這些語言的圍欄包住時先去除圍欄
var displayLangs = map[string]bool{"": true, "markdown": true, "md": true, "text": true}

// ForDisplay 將內嵌在文字中的 Markdown 管線表格轉為 HTML 表格，其餘內容原樣保留。
// 表格區塊的任何一列欄數與表頭不同時，整個區塊原樣輸出，不丟列也不補欄。
func ForDisplay(text string) string {
	if f := SplitFence(text); f.Fenced && displayLangs[f.Lang] {
		text = f.Body
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); {
		end := tableBlockEnd(lines, i)
		if end < 0 {
			out = append(out, lines[i])
			i++
			continue
		}

		block := lines[i:end]
		if html, ok := renderBlock(block); ok {
			out = append(out, html)
		} else {
			out = append(out, block...)
		}
		i = end
	}

	return strings.Join(out, "\n")
}

// tableBlockEnd 若 lines[start] 是表頭且下一行是分隔線，返回區塊結尾（不含），否則返回 -1
func tableBlockEnd(lines []string, start int) int {
	if start+1 >= len(lines) {
		return -1
	}
	head := strings.TrimSpace(lines[start])
	sep := strings.TrimSpace(lines[start+1])
	if !strings.Contains(head, "|") || table.IsSeparator(head) || !isDelimiterRow(sep, head) {
		return -1
	}

	end := start + 2
	for end < len(lines) {
		l := strings.TrimSpace(lines[end])
		if l == "" || !strings.Contains(l, "|") {
			break
		}
		end++
	}
	return end
}

// isDelimiterRow 分隔線需含管線符號且欄數與表頭相同，單獨的 --- 是水平線
func isDelimiterRow(sep, head string) bool {
	if !strings.Contains(sep, "|") || !table.IsSeparator(sep) {
		return false
	}
	return len(table.SplitCells(sep)) == len(table.SplitCells(head))
}

// renderBlock 解析單一表格區塊並輸出 HTML
func renderBlock(block []string) (string, bool) {
	header := table.SplitCells(block[0])
	records := make([][]string, 0, len(block)-2)
	for _, l := range block[2:] {
		if table.IsSeparator(strings.TrimSpace(l)) {
			continue
		}
		cells := table.SplitCells(l)
		if len(cells) != len(header) {
			return "", false
		}
		records = append(records, cells)
	}
	return table.RenderHTML(header, records), true
}
