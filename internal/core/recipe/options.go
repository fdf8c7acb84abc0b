package recipe

import (
	"strings"

	"recipe-agents/internal/core/sanitize"
)

// OptionCount 每次推薦的菜色數量
const OptionCount = 4

// Option 推薦的菜色
type Option struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	WhyPerfect      string   `json:"why_perfect"`
	MainIngredients []string `json:"main_ingredients"`
}

// decodeOptions 解碼並檢查恰好四個完整的選項
func decodeOptions(raw string) (any, error) {
	var options []Option
	if err := sanitize.DecodeJSON(raw, &options); err != nil {
		return nil, err
	}
	if len(options) != OptionCount {
		return nil, sanitize.Malformed(raw, "expected %d options, got %d", OptionCount, len(options))
	}

	for i, o := range options {
		switch {
		case strings.TrimSpace(o.Title) == "":
			return nil, sanitize.Malformed(raw, "option %d: title is empty", i)
		case strings.TrimSpace(o.Summary) == "":
			return nil, sanitize.Malformed(raw, "option %d: summary is empty", i)
		case strings.TrimSpace(o.WhyPerfect) == "":
			return nil, sanitize.Malformed(raw, "option %d: why_perfect is empty", i)
		case len(o.MainIngredients) == 0:
			return nil, sanitize.Malformed(raw, "option %d: main_ingredients is empty", i)
		}
		for j, ing := range o.MainIngredients {
			if strings.TrimSpace(ing) == "" {
				return nil, sanitize.Malformed(raw, "option %d: main_ingredients[%d] is empty", i, j)
			}
		}
	}
	return options, nil
}
