package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview-health/patient-portal/internal/directory"
	"github.com/harborview-health/patient-portal/internal/identity"
	"github.com/harborview-health/patient-portal/internal/slots"
)

func validPatientInfo() PatientInfo {
	return PatientInfo{
		FullName:     "Jordan Ramirez",
		Email:        "jordan.ramirez@example.com",
		Phone:        "+1-503-555-0188",
		DateOfBirth:  "1987-04-12",
		Address:      "44 Alder St, Portland, OR",
		InsuranceRef: "HV-22871",
	}
}

func TestPatientInfoValidate(t *testing.T) {
	t.Run("all fields valid", func(t *testing.T) {
		assert.Empty(t, validPatientInfo().Validate())
	})

	t.Run("every blank field reported", func(t *testing.T) {
		problems := PatientInfo{}.Validate()
		assert.Len(t, problems, 6)
		for _, field := range []string{"full_name", "email", "phone", "date_of_birth", "address", "insurance_ref"} {
			assert.Contains(t, problems, field)
		}
	})

	t.Run("malformed email", func(t *testing.T) {
		info := validPatientInfo()
		info.Email = "not-an-email"
		problems := info.Validate()
		require.Contains(t, problems, "email")
		assert.Equal(t, "email address is not valid", problems["email"])
	})

	t.Run("whitespace only counts as blank", func(t *testing.T) {
		info := validPatientInfo()
		info.Phone = "   "
		assert.Contains(t, info.Validate(), "phone")
	})
}

func TestAppointmentTypeValid(t *testing.T) {
	for _, typ := range []AppointmentType{TypeNewPatient, TypeFollowUp, TypeConsultation, TypeEmergency} {
		assert.True(t, typ.Valid(), string(typ))
	}
	assert.False(t, AppointmentType("walk_in").Valid())
	assert.False(t, AppointmentType("").Valid())
}

func TestFromProfile(t *testing.T) {
	profile := &identity.Profile{
		UserID:       "pat-1",
		Role:         identity.RolePatient,
		FullName:     "Jordan Ramirez",
		Email:        "jordan.ramirez@example.com",
		Phone:        "+1-503-555-0188",
		DateOfBirth:  "1987-04-12",
		Address:      "44 Alder St, Portland, OR",
		InsuranceRef: "HV-22871",
	}
	info := FromProfile(profile)
	assert.Equal(t, validPatientInfo(), info)
	assert.Empty(t, info.Validate())
}

func TestReadyToSubmit(t *testing.T) {
	provider := &directory.Provider{ID: "dr-lee", Name: "Dr. Sarah Lee"}
	slot := &slots.TimeSlot{ID: "dr-lee:2026-09-07:10", Display: "10:00 AM", Available: true}

	draft := AppointmentDraft{
		PatientInfo:      validPatientInfo(),
		SelectedProvider: provider,
		SelectedSlot:     slot,
		AppointmentType:  TypeFollowUp,
		Reason:           "persistent cough",
	}
	assert.True(t, draft.ReadyToSubmit())

	t.Run("missing slot", func(t *testing.T) {
		d := draft
		d.SelectedSlot = nil
		assert.False(t, d.ReadyToSubmit())
	})
	t.Run("missing provider", func(t *testing.T) {
		d := draft
		d.SelectedProvider = nil
		assert.False(t, d.ReadyToSubmit())
	})
	t.Run("blank reason", func(t *testing.T) {
		d := draft
		d.Reason = "  "
		assert.False(t, d.ReadyToSubmit())
	})
	t.Run("invalid patient info", func(t *testing.T) {
		d := draft
		d.PatientInfo.Email = "bad"
		assert.False(t, d.ReadyToSubmit())
	})
}

func TestFingerprint(t *testing.T) {
	base := AppointmentDraft{
		PatientInfo:      validPatientInfo(),
		SelectedProvider: &directory.Provider{ID: "dr-lee"},
		SelectedSlot:     &slots.TimeSlot{ID: "dr-lee:2026-09-07:10"},
		AppointmentType:  TypeFollowUp,
		Reason:           "persistent cough",
	}

	assert.Equal(t, base.Fingerprint(), base.Fingerprint(), "fingerprint must be stable")

	changed := base
	changed.Reason = "annual physical"
	assert.NotEqual(t, base.Fingerprint(), changed.Fingerprint())

	otherSlot := base
	otherSlot.SelectedSlot = &slots.TimeSlot{ID: "dr-lee:2026-09-07:11"}
	assert.NotEqual(t, base.Fingerprint(), otherSlot.Fingerprint())

	// Provider metadata beyond identity does not change the fingerprint.
	decorated := base
	decorated.SelectedProvider = &directory.Provider{ID: "dr-lee", Name: "Dr. Sarah Lee", Rating: 4.9}
	assert.Equal(t, base.Fingerprint(), decorated.Fingerprint())
}

func TestActiveChannels(t *testing.T) {
	assert.Nil(t, NotificationPrefs{}.ActiveChannels())
	assert.Equal(t, []string{"email"}, NotificationPrefs{Email: true}.ActiveChannels())
	assert.Equal(t, []string{"email", "sms"}, NotificationPrefs{Email: true, SMS: true}.ActiveChannels())
}

func TestMarkDirtyResetsSubmittedFlag(t *testing.T) {
	session := &Session{
		Draft: AppointmentDraft{
			PatientInfo:     validPatientInfo(),
			AppointmentType: TypeConsultation,
			Reason:          "checkup",
		},
	}
	session.Submitted = true
	session.SubmittedFingerprint = session.Draft.Fingerprint()

	session.markDirty()
	assert.True(t, session.Submitted, "unchanged draft stays submitted")

	session.Draft.Reason = "something else"
	session.markDirty()
	assert.False(t, session.Submitted, "edited draft must be resubmittable")
}
