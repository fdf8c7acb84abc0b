package recipe

import "strings"

// MealType 使用者選擇的餐別
type MealType string

const (
	Breakfast MealType = "Breakfast"
	Lunch     MealType = "Lunch"
	Dinner    MealType = "Dinner"
	// Custom 需要使用者描述情境
	Custom MealType = "Custom"
)

var mealTypes = []MealType{Breakfast, Lunch, Dinner, Custom}

// ParseMealType 不分大小寫比對餐別
func ParseMealType(s string) (MealType, bool) {
	s = strings.TrimSpace(s)
	for _, m := range mealTypes {
		if strings.EqualFold(s, string(m)) {
			return m, true
		}
	}
	return "", false
}
