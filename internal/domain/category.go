package domain

import "sort"

// OtherCategory is the bucket for symbols that belong to no configured
// category.
const OtherCategory = "Other"

// CategoryMap maps a category label to its member symbols. It is static
// configuration and never mutated at runtime.
type CategoryMap map[string][]string

// CategoryOf returns the category of a symbol, or OtherCategory when the
// symbol is not a member of any configured category.
func (m CategoryMap) CategoryOf(symbol string) string {
	for category, symbols := range m {
		for _, s := range symbols {
			if s == symbol {
				return category
			}
		}
	}
	return OtherCategory
}

// Categories returns the configured category labels in sorted order.
func (m CategoryMap) Categories() []string {
	out := make([]string, 0, len(m))
	for category := range m {
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}

// Members returns the configured members of a category that are present in
// the given universe, preserving configuration order.
func (m CategoryMap) Members(category string, universe map[string]bool) []string {
	var out []string
	for _, s := range m[category] {
		if universe[s] {
			out = append(out, s)
		}
	}
	return out
}
