package table

import (
	pretty "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// CSSClass 渲染 HTML 表格時使用的 class
const CSSClass = "recipe-table"

// newWriter 建立保留原始表頭大小寫的 go-pretty writer
func newWriter(header []string, records [][]string) pretty.Writer {
	style := pretty.StyleDefault
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault
	style.HTML.CSSClass = CSSClass

	tw := pretty.NewWriter()
	tw.SetStyle(style)

	head := make(pretty.Row, len(header))
	for i, h := range header {
		head[i] = h
	}
	tw.AppendHeader(head)

	for _, rec := range records {
		r := make(pretty.Row, len(header))
		for i := range header {
			if i < len(rec) {
				r[i] = rec[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}
	return tw
}

// Format 將表格重新輸出為 Markdown 管線表格
func Format(t *Table) string {
	if t == nil || len(t.Header) == 0 {
		return ""
	}
	return newWriter(t.Header, t.Records()).RenderMarkdown()
}

// RenderHTML 將表頭與資料輸出為 HTML 表格，欄數與順序不變
func RenderHTML(header []string, records [][]string) string {
	if len(header) == 0 {
		return ""
	}
	return newWriter(header, records).RenderHTML()
}
