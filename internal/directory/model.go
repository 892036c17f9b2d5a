package directory

import "strings"

// Provider is a doctor eligible to be booked. Immutable once fetched.
type Provider struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Specialty       string   `json:"specialty"`
	Department      string   `json:"department"`
	Availability    []string `json:"availability"` // weekday abbreviations, e.g. "Mon"
	Rating          float64  `json:"rating"`
	YearsExperience int      `json:"years_experience"`
}

// AvailableOn reports whether the provider works on the given weekday abbreviation.
func (p Provider) AvailableOn(weekday string) bool {
	for _, day := range p.Availability {
		if strings.EqualFold(day, weekday) {
			return true
		}
	}
	return false
}

// Department groups providers by specialty area and is used only as a
// selection filter.
type Department struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProviderCounts returns the number of providers belonging to each department
// name. The count is derived, never stored.
func ProviderCounts(providers []Provider) map[string]int {
	counts := make(map[string]int, 8)
	for _, p := range providers {
		if p.Department != "" {
			counts[p.Department]++
		}
	}
	return counts
}
