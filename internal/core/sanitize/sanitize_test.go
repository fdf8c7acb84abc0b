package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFence(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		body   string
		lang   string
		fenced bool
		closed bool
	}{
		{name: "plain", in: `  [1, 2]  `, body: `[1, 2]`},
		{name: "fence with tag", in: "```json\n[1, 2]\n```", body: `[1, 2]`, lang: "json", fenced: true, closed: true},
		{name: "fence without tag", in: "```\n{\"a\": 1}\n```", body: `{"a": 1}`, fenced: true, closed: true},
		{name: "upper case tag and surrounding whitespace", in: "\n\n  ```JSON  \n{\"a\": 1}\n```  \n", body: `{"a": 1}`, lang: "json", fenced: true, closed: true},
		{name: "tilde fence", in: "~~~json\n[]\n~~~", body: `[]`, lang: "json", fenced: true, closed: true},
		{name: "four backticks", in: "````json\n[\"```\"]\n````", body: "[\"```\"]", lang: "json", fenced: true, closed: true},
		{name: "missing closing fence", in: "```json\n{\"a\": 1}", body: `{"a": 1}`, lang: "json", fenced: true},
		{name: "single line with tag", in: "```json {\"a\": 1}```", body: `{"a": 1}`, lang: "json", fenced: true, closed: true},
		{name: "single line without tag", in: "```{\"a\": 1}```", body: `{"a": 1}`, fenced: true, closed: true},
		{name: "crlf", in: "```json\r\n[1]\r\n```\r\n", body: `[1]`, lang: "json", fenced: true, closed: true},
		{name: "two backticks is not a fence", in: "``x``", body: "``x``"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitFence(tc.in)
			assert.Equal(t, tc.body, got.Body)
			assert.Equal(t, tc.lang, got.Lang)
			assert.Equal(t, tc.fenced, got.Fenced)
			assert.Equal(t, tc.closed, got.Closed)
		})
	}
}

func TestForJSONFencedEqualsUnfenced(t *testing.T) {
	content := `[{"title": "Stir-Fry", "main_ingredients": ["chicken", "broccoli"], "minutes": 20}]`
	wrappers := []string{
		"%s",
		"```json\n%s\n```",
		"```\n%s\n```",
		"  \n```json\n%s\n```\n\n",
		"~~~JSON\n%s\n~~~",
	}

	want, err := ForJSON(content)
	require.NoError(t, err)

	for _, w := range wrappers {
		got, err := ForJSON(strings.Replace(w, "%s", content, 1))
		require.NoError(t, err, w)
		assert.Equal(t, want, got, w)
	}
}

func TestForJSONMalformed(t *testing.T) {
	inputs := []string{
		"",
		"```json\n```",
		"Here are your options: [1, 2]",
		"```json\n[{\"title\": \"a\",}]\n```",
		"{\"a\": 1} trailing",
		"[1, 2",
		"{title: 'x'}",
		"[1,2] null",
		"```json\n{\"a\":1}\nnull null\n```",
	}

	for _, in := range inputs {
		got, err := ForJSON(in)
		assert.Nil(t, got, in)

		var mo *MalformedOutputError
		require.ErrorAs(t, err, &mo, in)
		assert.Equal(t, in, mo.Raw)
	}
}

func TestDecodeJSONTyped(t *testing.T) {
	var out []struct {
		Title string `json:"title"`
	}
	require.NoError(t, DecodeJSON("```json\n[{\"title\":\"Soup\"}]\n```", &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Soup", out[0].Title)

	err := Malformed("raw", "expected %d entries, got %d", 4, 3)
	var mo *MalformedOutputError
	require.ErrorAs(t, err, &mo)
	assert.Equal(t, "raw", mo.Raw)
	assert.Contains(t, err.Error(), "expected 4 entries, got 3")
}

const recipe = `Dish name: Lemon Salmon
Description: Flaky salmon with lemon.

Quantified Ingredients (per serving)
| Ingredient | Quantity | Notes |
|------------|----------|-------|
| salmon | 150g | skin on |
| lemon | 1/2 | juiced |

Instructions
| step no | instructions |
|---|---|
| 1 | Heat the pan. |
| 2 | Sear the salmon, skin side down. |`

func TestForDisplayConvertsTables(t *testing.T) {
	out := ForDisplay(recipe)

	assert.True(t, strings.HasPrefix(out, "Dish name: Lemon Salmon\nDescription: Flaky salmon with lemon.\n\nQuantified Ingredients (per serving)\n<table"))
	assert.Equal(t, 2, strings.Count(out, "<table"))
	assert.Equal(t, 5, strings.Count(out, "</th>"))
	assert.Equal(t, 10, strings.Count(out, "</td>"))
	assert.NotContains(t, out, "|---")
	assert.Contains(t, out, "\nInstructions\n")

	// 儲存格順序不變
	order := []string{"salmon", "150g", "skin on", "lemon", "1/2", "juiced", "Heat the pan.", "Sear the salmon"}
	pos := strings.Index(out, "<table")
	for _, cell := range order {
		idx := strings.Index(out[pos:], cell)
		require.GreaterOrEqual(t, idx, 0, cell)
		pos += idx + len(cell)
	}
}

func TestForDisplayPassthrough(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "prose", in: "Just stir gently.\nThen serve."},
		{name: "pipes without separator", in: "a | b\nc | d"},
		{name: "mismatched row keeps block verbatim", in: "| a | b |\n|---|---|\n| 1 | 2 |\n| broken |"},
		{name: "separator alone", in: "|---|---|"},
		{name: "prose above horizontal rule", in: "Serves 2 | ready in 20 min\n---\nEnjoy."},
		{name: "separator narrower than header", in: "| a | b | c |\n|---|---|\n| 1 | 2 | 3 |"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.in, ForDisplay(tc.in))
		})
	}
}

func TestForDisplayStripsMarkdownFence(t *testing.T) {
	out := ForDisplay("```markdown\n| a | b |\n|---|---|\n| 1 | 2 |\n```")
	assert.True(t, strings.HasPrefix(out, "<table"))
	assert.NotContains(t, out, "```")

	// 非 Markdown 圍欄保留原樣
	code := "```go\nfmt.Println(1)\n```"
	assert.Equal(t, code, ForDisplay(code))
}
