package model

import "strings"

const (
	CategoryElectronics = "Electronics"
	CategoryBooksNotes  = "Books & Notes"
	CategoryKeys        = "Keys"
	CategoryClothing    = "Clothing"
	CategoryIDCards     = "ID Cards"
	CategoryOther       = "Other"
)

// Categories is the closed set offered by the submission form, in display order.
var Categories = []string{
	CategoryElectronics,
	CategoryBooksNotes,
	CategoryKeys,
	CategoryClothing,
	CategoryIDCards,
	CategoryOther,
}

// categorySlugs maps the sidebar ids used in query strings to category names.
var categorySlugs = map[string]string{
	"electronics": CategoryElectronics,
	"books":       CategoryBooksNotes,
	"keys":        CategoryKeys,
	"clothing":    CategoryClothing,
	"id-cards":    CategoryIDCards,
	"other":       CategoryOther,
}

func IsValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ResolveCategory accepts a sidebar slug or a category name (case-insensitive)
// and returns the canonical name.
func ResolveCategory(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if name, ok := categorySlugs[strings.ToLower(s)]; ok {
		return name, true
	}
	for _, known := range Categories {
		if strings.EqualFold(s, known) {
			return known, true
		}
	}
	return "", false
}
