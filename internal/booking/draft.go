package booking

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/harborview-health/patient-portal/internal/directory"
	"github.com/harborview-health/patient-portal/internal/identity"
	"github.com/harborview-health/patient-portal/internal/slots"
)

// AppointmentType is the kind of visit being booked.
type AppointmentType string

const (
	TypeNewPatient   AppointmentType = "new_patient"
	TypeFollowUp     AppointmentType = "follow_up"
	TypeConsultation AppointmentType = "consultation"
	TypeEmergency    AppointmentType = "emergency"
)

// Valid reports whether the type is one of the fixed enumeration.
func (t AppointmentType) Valid() bool {
	switch t {
	case TypeNewPatient, TypeFollowUp, TypeConsultation, TypeEmergency:
		return true
	}
	return false
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// PatientInfo is the identity section of the draft. All fields are required.
type PatientInfo struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	DateOfBirth  string `json:"date_of_birth"`
	Address      string `json:"address"`
	InsuranceRef string `json:"insurance_ref"`
}

// FromProfile seeds patient info from the authenticated user's profile.
func FromProfile(p *identity.Profile) PatientInfo {
	return PatientInfo{
		FullName:     p.FullName,
		Email:        p.Email,
		Phone:        p.Phone,
		DateOfBirth:  p.DateOfBirth,
		Address:      p.Address,
		InsuranceRef: p.InsuranceRef,
	}
}

// Validate returns a field→message map; empty means all six fields pass.
func (p PatientInfo) Validate() map[string]string {
	problems := make(map[string]string)
	if strings.TrimSpace(p.FullName) == "" {
		problems["full_name"] = "full name is required"
	}
	switch {
	case strings.TrimSpace(p.Email) == "":
		problems["email"] = "email is required"
	case !emailPattern.MatchString(p.Email):
		problems["email"] = "email address is not valid"
	}
	if strings.TrimSpace(p.Phone) == "" {
		problems["phone"] = "phone is required"
	}
	if strings.TrimSpace(p.DateOfBirth) == "" {
		problems["date_of_birth"] = "date of birth is required"
	}
	if strings.TrimSpace(p.Address) == "" {
		problems["address"] = "address is required"
	}
	if strings.TrimSpace(p.InsuranceRef) == "" {
		problems["insurance_ref"] = "insurance reference is required"
	}
	return problems
}

// NotificationPrefs are independent channel flags; both may be false.
type NotificationPrefs struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
}

// ActiveChannels lists the enabled channels for display.
func (n NotificationPrefs) ActiveChannels() []string {
	var out []string
	if n.Email {
		out = append(out, "email")
	}
	if n.SMS {
		out = append(out, "sms")
	}
	return out
}

// AppointmentDraft is the single mutable aggregate threaded through every
// step. The controller is its only writer.
type AppointmentDraft struct {
	PatientInfo       PatientInfo         `json:"patient_info"`
	SelectedProvider  *directory.Provider `json:"selected_provider"`
	SelectedSlot      *slots.TimeSlot     `json:"selected_slot"`
	AppointmentType   AppointmentType     `json:"appointment_type"`
	Reason            string              `json:"reason"`
	NotificationPrefs NotificationPrefs   `json:"notification_prefs"`
}

// DetailsValid reports whether appointment type and reason pass validation.
func (d *AppointmentDraft) DetailsValid() bool {
	return d.AppointmentType.Valid() && strings.TrimSpace(d.Reason) != ""
}

// ReadyToSubmit reports whether every section required for submission is set.
func (d *AppointmentDraft) ReadyToSubmit() bool {
	return len(d.PatientInfo.Validate()) == 0 &&
		d.SelectedProvider != nil &&
		d.SelectedSlot != nil &&
		d.DetailsValid()
}

// fingerprintView pins down the structural identity of a draft. Two drafts
// with equal fingerprints would create the same booking.
type fingerprintView struct {
	Patient  PatientInfo       `json:"patient"`
	Provider string            `json:"provider"`
	Slot     string            `json:"slot"`
	Type     AppointmentType   `json:"type"`
	Reason   string            `json:"reason"`
	Prefs    NotificationPrefs `json:"prefs"`
}

// Fingerprint returns a stable hash of the draft's structural fields. The
// controller's submitted-once flag is keyed on it: an unmodified draft never
// reaches the backend twice.
func (d *AppointmentDraft) Fingerprint() string {
	view := fingerprintView{
		Patient: d.PatientInfo,
		Type:    d.AppointmentType,
		Reason:  d.Reason,
		Prefs:   d.NotificationPrefs,
	}
	if d.SelectedProvider != nil {
		view.Provider = d.SelectedProvider.ID
	}
	if d.SelectedSlot != nil {
		view.Slot = d.SelectedSlot.ID
	}
	raw, _ := json.Marshal(view)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
