package table

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMinimalTable(t *testing.T) {
	got := Parse("|Name|Qty|\n|---|---|\n|egg|2|")

	require.Empty(t, got.Diagnostics)
	assert.Equal(t, []string{"Name", "Qty"}, got.Header)
	assert.Equal(t, []Row{{"Name": "egg", "Qty": "2"}}, got.Rows)
	assert.NoError(t, got.Defect())
}

func TestParseRowCount(t *testing.T) {
	for _, n := range []int{0, 1, 3, 12} {
		t.Run(fmt.Sprintf("%d rows", n), func(t *testing.T) {
			var b strings.Builder
			b.WriteString("| item | amount | unit |\n|------|--------|------|\n")
			for i := 0; i < n; i++ {
				fmt.Fprintf(&b, "| item%d | %d | g |\n", i, i*10)
			}

			got := Parse(b.String())
			require.Len(t, got.Rows, n)
			for _, row := range got.Rows {
				assert.Len(t, row, 3)
			}
		})
	}
}

func TestParseSkipsMismatchedRows(t *testing.T) {
	raw := strings.Join([]string{
		"| ingredient | qty | in_pantry |",
		"|---|---|---|",
		"| chicken_breast | 400g | yes |",
		"| broccoli | 1 head |",
		"| rice | 1kg | yes | extra |",
		"| honey | 1 jar | no |",
	}, "\n")

	got := Parse(raw)

	require.Len(t, got.Rows, 2)
	assert.Equal(t, "chicken_breast", got.Rows[0]["ingredient"])
	assert.Equal(t, "honey", got.Rows[1]["ingredient"])
	require.Len(t, got.Diagnostics, 2)
	assert.Equal(t, 4, got.Diagnostics[0].Line)
	assert.Contains(t, got.Diagnostics[0].Reason, "broken row")
	assert.Contains(t, got.Diagnostics[1].Reason, "too many cells")
}

func TestParseNoise(t *testing.T) {
	raw := `[cite_start]Available ingredients [cite: 1]

| name | discounted |
| :--- | :---: |

| lemon [cite: 4] | yes |
|---|---|
| tofu | 【12†source】no |
|   |   |
`
	got := Parse(raw)

	require.Empty(t, got.Diagnostics)
	assert.Equal(t, []Row{
		{"name": "lemon", "discounted": "yes"},
		{"name": "tofu", "discounted": "no"},
	}, got.Rows)
}

func TestParseDuplicateColumns(t *testing.T) {
	got := Parse("|Name|Name|Qty|Name_2|\n|---|---|---|---|\n|a|b|1|c|")

	assert.Equal(t, []string{"Name", "Name_2", "Qty", "Name_2_2"}, got.Header)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, Row{"Name": "a", "Name_2": "b", "Qty": "1", "Name_2_2": "c"}, got.Rows[0])
	assert.Equal(t, [][]string{{"a", "b", "1", "c"}}, got.Records())

	formatted := Format(got)
	assert.Contains(t, formatted, "a")
	assert.Contains(t, formatted, "b")
}

func TestStripNoiseNested(t *testing.T) {
	assert.Equal(t, "salt ", StripNoise("salt [ci[cite: 1]te: 2]"))
	assert.Equal(t, "x", StripNoise("x[cite_start][so[cite: 3]urce: a.csv]"))

	first := Parse("| item | note |\n|---|---|\n| salt | [ci[cite: 1]te: 2] |")
	second := Parse(Format(first))
	assert.Equal(t, first.Rows, second.Rows)
}

func TestParseEdgeCases(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		header []string
		rows   []Row
		diags  int
	}{
		{
			name: "empty input",
			raw:  "",
			rows: []Row{},
		},
		{
			name: "only blank and delimiter lines",
			raw:  "\n  \n| |\n||\n",
			rows: []Row{},
		},
		{
			name:   "header only",
			raw:    "| a | b |\n|---|---|\n",
			header: []string{"a", "b"},
			rows:   []Row{},
		},
		{
			name:   "no separator uses first line as header",
			raw:    "day | activity\nmon | gym\ntue | rest",
			header: []string{"day", "activity"},
			rows:   []Row{{"day": "mon", "activity": "gym"}, {"day": "tue", "activity": "rest"}},
		},
		{
			name:   "prose before the table is ignored",
			raw:    "Quantified Ingredients (per serving)\n| Ingredient | Quantity |\n|---|---|\n| salmon | 150g |",
			header: []string{"Ingredient", "Quantity"},
			rows:   []Row{{"Ingredient": "salmon", "Quantity": "150g"}},
		},
		{
			name:   "separator first",
			raw:    "|---|---|\n| a | b |\n| 1 | 2 |",
			header: []string{"a", "b"},
			rows:   []Row{{"a": "1", "b": "2"}},
		},
		{
			name:   "every row mismatched",
			raw:    "| a | b | c |\n|---|---|---|\n| 1 |\n| 1 | 2 |",
			header: []string{"a", "b", "c"},
			rows:   []Row{},
			diags:  2,
		},
		{
			name:   "escaped pipe stays in cell",
			raw:    `| rule | value |` + "\n|---|---|\n" + `| either \| or | x |`,
			header: []string{"rule", "value"},
			rows:   []Row{{"rule": "either | or", "value": "x"}},
		},
		{
			name:   "crlf line endings",
			raw:    "| a | b |\r\n|---|---|\r\n| 1 | 2 |\r\n",
			header: []string{"a", "b"},
			rows:   []Row{{"a": "1", "b": "2"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.raw)
			assert.Equal(t, tc.header, got.Header)
			assert.Equal(t, tc.rows, got.Rows)
			assert.Len(t, got.Diagnostics, tc.diags)
		})
	}
}

func TestDefect(t *testing.T) {
	err := Parse("| a | b |\n|---|---|\n| only-one |").Defect()

	var defect *DefectError
	require.ErrorAs(t, err, &defect)
	require.Len(t, defect.Diagnostics, 1)
	assert.Contains(t, err.Error(), "1 lines skipped")

	assert.Error(t, Parse("").Defect())
}

func TestParseNeverPanics(t *testing.T) {
	inputs := []string{
		"|", "||||", "---", "|---", "\\", "|\\|", "| a |\n|---|\n\\", "\x00|\x00\n---|",
		strings.Repeat("|", 1000), "【", "[cite", "| a | b |\n| --- |",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Parse(in) }, "input %q", in)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	inputs := []string{
		"|Name|Qty|\n|---|---|\n|egg|2|",
		"| Ingredient | Quantity | Notes |\n|---|---|---|\n| garlic | 2 cloves | minced |\n| olive_oil | 1 tbsp | |\n| lemon | 1/2 | optional |",
		"| date | time_available_min | activity_level |\n|---|---|---|\n| 2025-10-06 | 25 | high |\n| 2025-10-07 | 40 | low |",
	}

	for _, in := range inputs {
		first := Parse(in)
		require.NotEmpty(t, first.Rows)

		second := Parse(Format(first))
		assert.Equal(t, first.Header, second.Header)
		assert.Equal(t, first.Rows, second.Rows)
		assert.Empty(t, second.Diagnostics)
	}
}

func TestRenderHTML(t *testing.T) {
	out := RenderHTML([]string{"Nutrient", "Amount"}, [][]string{{"Protein", "30g"}, {"Fat", "<15g"}})

	assert.Contains(t, out, `class="`+CSSClass+`"`)
	assert.Equal(t, 2, strings.Count(out, "</th>"))
	assert.Equal(t, 4, strings.Count(out, "</td>"))
	assert.Less(t, strings.Index(out, "Protein"), strings.Index(out, "30g"))
	assert.Contains(t, out, "&lt;15g")
	assert.Empty(t, RenderHTML(nil, nil))
}
