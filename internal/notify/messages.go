package notify

import "fmt"

func confirmationEmail(p queuePayload) EmailMessage {
	appt := p.Appointment
	body := fmt.Sprintf(
		"Hi %s,\n\nYour appointment is confirmed.\n\nProvider: %s\nDate: %s\nTime: %s\nConfirmation number: %s\n\nIf you need to make changes, sign in to the patient portal.\n\nHarborview Health",
		appt.PatientName, appt.ProviderName, appt.Date, appt.DisplayTime, p.ConfirmationID,
	)
	return EmailMessage{
		To:      appt.PatientEmail,
		ToName:  appt.PatientName,
		Subject: fmt.Sprintf("Appointment confirmed for %s at %s", appt.Date, appt.DisplayTime),
		Body:    body,
	}
}

func cancellationEmail(p queuePayload) EmailMessage {
	appt := p.Appointment
	body := fmt.Sprintf(
		"Hi %s,\n\nYour appointment with %s on %s at %s has been cancelled.\nConfirmation number: %s\n\nYou can book a new appointment any time through the patient portal.\n\nHarborview Health",
		appt.PatientName, appt.ProviderName, appt.Date, appt.DisplayTime, p.ConfirmationID,
	)
	return EmailMessage{
		To:      appt.PatientEmail,
		ToName:  appt.PatientName,
		Subject: fmt.Sprintf("Appointment cancelled: %s at %s", appt.Date, appt.DisplayTime),
		Body:    body,
	}
}

func confirmationSMS(p queuePayload) string {
	appt := p.Appointment
	return fmt.Sprintf("Harborview Health: appointment confirmed with %s on %s at %s. Ref %s.",
		appt.ProviderName, appt.Date, appt.DisplayTime, p.ConfirmationID)
}

func cancellationSMS(p queuePayload) string {
	appt := p.Appointment
	return fmt.Sprintf("Harborview Health: your appointment with %s on %s at %s was cancelled. Ref %s.",
		appt.ProviderName, appt.Date, appt.DisplayTime, p.ConfirmationID)
}
