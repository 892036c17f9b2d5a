package booking

import (
	"time"

	"github.com/harborview-health/patient-portal/internal/directory"
	"github.com/harborview-health/patient-portal/internal/slots"
)

// Session is one patient's pass through the booking workflow. It outlives any
// single request, so navigating back and forward never loses entered data.
type Session struct {
	ID        string `json:"id"`
	PatientID string `json:"patient_id"`
	State     State  `json:"state"`

	Draft    AppointmentDraft         `json:"draft"`
	Selector directory.SelectionState `json:"selector"`

	// Directory snapshot, loaded once per workflow entry.
	Providers       []directory.Provider   `json:"providers"`
	Departments     []directory.Department `json:"departments"`
	DirectoryLoaded bool                   `json:"directory_loaded"`

	// Current slot list instance for the chosen (provider, date).
	SlotList       *slots.SlotList `json:"slot_list,omitempty"`
	SuggestedDates []string        `json:"suggested_dates,omitempty"`

	// Submission bookkeeping.
	Submitted            bool   `json:"submitted"`
	SubmittedFingerprint string `json:"submitted_fingerprint"`
	ConfirmationID       string `json:"confirmation_id"`
	SubmitFailure        string `json:"submit_failure,omitempty"`

	// Cancellation is a two-step action: request, then confirm.
	CancelRequested bool `json:"cancel_requested"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// markDirty resets the submitted-once flag when the draft's structural
// identity changed since the recorded submission.
func (s *Session) markDirty() {
	if s.Submitted && s.Draft.Fingerprint() != s.SubmittedFingerprint {
		s.Submitted = false
	}
}
