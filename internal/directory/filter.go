package directory

import "strings"

// Filter narrows a provider list. Zero values leave the corresponding
// dimension unfiltered.
type Filter struct {
	Search     string
	Specialty  string
	Department string // department name, not id
}

// Apply returns the providers matching every set dimension of the filter.
// It is a pure function: identical inputs always yield identical output order.
func Apply(providers []Provider, f Filter) []Provider {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	matched := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if f.Specialty != "" && p.Specialty != f.Specialty {
			continue
		}
		if f.Department != "" && p.Department != f.Department {
			continue
		}
		matched = append(matched, p)
	}
	return matched
}

// Specialties returns the distinct specialties present, preserving first-seen order.
func Specialties(providers []Provider) []string {
	seen := make(map[string]struct{}, len(providers))
	var out []string
	for _, p := range providers {
		if p.Specialty == "" {
			continue
		}
		if _, ok := seen[p.Specialty]; ok {
			continue
		}
		seen[p.Specialty] = struct{}{}
		out = append(out, p.Specialty)
	}
	return out
}
