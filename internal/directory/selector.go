package directory

// Mode identifies how the patient is browsing providers.
type Mode string

const (
	// ModeDirect searches providers by name with an optional specialty filter.
	ModeDirect Mode = "direct"
	// ModeByDepartment picks a department first, which narrows the specialty
	// filter and hands control back to direct mode.
	ModeByDepartment Mode = "by_department"
)

// SelectionState is the serializable state of the provider selection step.
// The two modes are mutually exclusive at any instant.
type SelectionState struct {
	Mode              Mode   `json:"mode"`
	Search            string `json:"search"`
	Specialty         string `json:"specialty"`
	Department        string `json:"department"` // department name acting as filter
	PendingProviderID string `json:"pending_provider_id"`
}

// NewSelectionState starts in direct mode with no filters.
func NewSelectionState() SelectionState {
	return SelectionState{Mode: ModeDirect}
}

// SwitchMode changes the browsing mode. Switching clears the department
// filter but never clears a provider the patient already picked.
func (s *SelectionState) SwitchMode(m Mode) {
	if m != ModeDirect && m != ModeByDepartment {
		return
	}
	if s.Mode != m {
		s.Department = ""
	}
	s.Mode = m
}

// SetSearch updates the name search text.
func (s *SelectionState) SetSearch(search string) {
	s.Search = search
}

// SetSpecialty updates the specialty filter. Empty means all specialties.
func (s *SelectionState) SetSpecialty(specialty string) {
	s.Specialty = specialty
}

// ChooseDepartment narrows filtering to the department and returns the
// selector to direct mode so the patient can refine by name.
func (s *SelectionState) ChooseDepartment(dep Department) {
	s.Department = dep.Name
	s.Mode = ModeDirect
}

// Pick stores a pending provider selection. The selection is only committed
// to the draft when the patient advances.
func (s *SelectionState) Pick(providerID string) {
	s.PendingProviderID = providerID
}

// Visible returns the providers currently matching the selector's filters.
func (s SelectionState) Visible(providers []Provider) []Provider {
	return Apply(providers, Filter{
		Search:     s.Search,
		Specialty:  s.Specialty,
		Department: s.Department,
	})
}

// Pending resolves the pending selection against the provider list, returning
// nil when nothing has been picked or the pick no longer resolves.
func (s SelectionState) Pending(providers []Provider) *Provider {
	if s.PendingProviderID == "" {
		return nil
	}
	for i := range providers {
		if providers[i].ID == s.PendingProviderID {
			return &providers[i]
		}
	}
	return nil
}
