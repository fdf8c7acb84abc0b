package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIngredientSection(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		found bool
	}{
		{
			name:  "plain heading",
			input: draftRecipe,
			want:  "| Ingredient | Quantity | Notes |\n|------------|----------|-------|\n| chicken_breast | 150g | sliced |\n| broccoli | 100g | florets |",
			found: true,
		},
		{
			name:  "markdown heading without blank line after table",
			input: "## Ingredients:\n| a | b |\n|---|---|\n| x | 1 |\nInstructions\n1. go",
			want:  "| a | b |\n|---|---|\n| x | 1 |",
			found: true,
		},
		{
			name:  "fenced",
			input: "```markdown\n**Ingredients**\n\n- egg\n- milk\n\n## Method\n```",
			want:  "- egg\n- milk",
			found: true,
		},
		{
			name:  "no section",
			input: "Just cook it.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IngredientSection(tt.input)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckIngredients(t *testing.T) {
	tableA := "Ingredients\n| a | b |\n|---|---|\n| x | 1 |"

	tests := []struct {
		name     string
		draft    string
		critique string
		problem  string
		violated bool
	}{
		{name: "unchanged", draft: draftRecipe, critique: draftRecipe},
		{name: "section dropped", draft: draftRecipe, critique: "Dish name: x", problem: "ingredient section missing from the critiqued recipe", violated: true},
		{name: "header changed", draft: tableA, critique: "Ingredients\n| a | c |\n|---|---|\n| x | 1 |", problem: "ingredient table header changed", violated: true},
		{name: "rows changed", draft: tableA, critique: "Ingredients\n| a | b |\n|---|---|\n| x | 2 |", problem: "ingredient table rows changed", violated: true},
		{name: "no section in draft", draft: "no table here", critique: "anything", problem: UnverifiedDraft},
		{
			name:     "unrecognised heading cannot be checked",
			draft:    "What you need\n| item | qty |\n|---|---|\n| egg | 2 |",
			critique: "What you need\n| item | qty |\n|---|---|\n| egg | 5 |",
			problem:  UnverifiedDraft,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := CheckIngredients(tt.draft, tt.critique)
			assert.Equal(t, tt.problem, check.Problem)
			assert.Equal(t, tt.violated, check.Violated())
		})
	}
}
