package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/harborview-health/patient-portal/internal/booking"
	"github.com/harborview-health/patient-portal/internal/directory"
	"github.com/harborview-health/patient-portal/internal/identity"
	"github.com/harborview-health/patient-portal/internal/slots"
)

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeWorkflowError maps workflow errors onto the API's error taxonomy:
// auth failures are 401, unknown sessions 404, wrong-state operations 409,
// and a down directory 503 with the retryable flag set.
func writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrNotAuthenticated), errors.Is(err, identity.ErrNotPatient):
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in as a patient to book appointments")
	case errors.Is(err, booking.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", "booking session not found or expired")
	case errors.Is(err, booking.ErrSessionCancelled):
		writeError(w, http.StatusConflict, "session_cancelled", "this booking was cancelled and cannot be resumed")
	case errors.Is(err, booking.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", "this action is not available at the current step")
	case errors.Is(err, booking.ErrMissingPrecondition):
		writeError(w, http.StatusConflict, "missing_selection", "a required selection is missing; return to the previous step")
	case errors.Is(err, booking.ErrNoCancelRequested):
		writeError(w, http.StatusConflict, "no_cancel_requested", "request cancellation before confirming it")
	case errors.Is(err, directory.ErrDirectoryUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error:     "directory_unavailable",
			Message:   "the provider directory is temporarily unavailable, please retry",
			Retryable: true,
		})
	case errors.Is(err, slots.ErrUnknownSlot):
		writeError(w, http.StatusNotFound, "unknown_slot", "that slot is not in the current list")
	case errors.Is(err, slots.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", "that slot is not available")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return false
	}
	return true
}
