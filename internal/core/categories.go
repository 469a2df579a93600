package core

// CategoryOther is valid for both kinds.
const CategoryOther = "other"

var (
	incomeCategories = []string{
		"salary", "gift", "investment", "bonus", CategoryOther,
	}
	expenseCategories = []string{
		"food", "transport", "shopping", "rent", "bills",
		"entertainment", "health", "education", CategoryOther,
	}
)

// CategoriesFor returns the enumerated category set for a kind. Presentation
// offers only these choices; intake does not enforce membership.
func CategoriesFor(k Kind) []string {
	switch k {
	case Income:
		return append([]string(nil), incomeCategories...)
	case Expense:
		return append([]string(nil), expenseCategories...)
	}
	return nil
}

// KnownCategory reports whether the category belongs to the kind's set.
// Advisory only; callers that reject unknown categories do so on their own.
func KnownCategory(k Kind, category string) bool {
	for _, c := range CategoriesFor(k) {
		if c == category {
			return true
		}
	}
	return false
}
