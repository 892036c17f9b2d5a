package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/harborview-health/patient-portal/internal/booking"
	"github.com/harborview-health/patient-portal/internal/directory"
	"github.com/harborview-health/patient-portal/internal/slots"
	"github.com/harborview-health/patient-portal/pkg/logging"
)

// BookingHandler exposes the appointment booking workflow over HTTP. Every
// route operates on a server-held session; the client only sends intents.
type BookingHandler struct {
	controller *booking.Controller
	logger     *logging.Logger
}

// NewBookingHandler creates a booking workflow handler.
func NewBookingHandler(controller *booking.Controller, logger *logging.Logger) *BookingHandler {
	if controller == nil {
		panic("handlers: booking controller cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{controller: controller, logger: logger}
}

type departmentView struct {
	directory.Department
	ProviderCount int `json:"provider_count"`
}

// sessionResponse is the workflow session as the portal frontend renders it.
type sessionResponse struct {
	ID              string                     `json:"id"`
	State           booking.State              `json:"state"`
	Draft           booking.AppointmentDraft   `json:"draft"`
	Validation      map[string]string          `json:"validation,omitempty"`
	Selector        directory.SelectionState   `json:"selector"`
	Providers       []directory.Provider       `json:"providers,omitempty"`
	Departments     []departmentView           `json:"departments,omitempty"`
	DirectoryLoaded bool                       `json:"directory_loaded"`
	SlotList        *slots.SlotList            `json:"slot_list,omitempty"`
	SuggestedDates  []string                   `json:"suggested_dates,omitempty"`
	ConfirmationID  string                     `json:"confirmation_id,omitempty"`
	SubmitFailure   string                     `json:"submit_failure,omitempty"`
	CancelRequested bool                       `json:"cancel_requested"`
	Notice          *booking.SlotNotice        `json:"notice,omitempty"`
	Advanced        *bool                      `json:"advanced,omitempty"`
}

func sessionView(s *booking.Session) sessionResponse {
	resp := sessionResponse{
		ID:              s.ID,
		State:           s.State,
		Draft:           s.Draft,
		Selector:        s.Selector,
		DirectoryLoaded: s.DirectoryLoaded,
		SlotList:        s.SlotList,
		SuggestedDates:  s.SuggestedDates,
		ConfirmationID:  s.ConfirmationID,
		SubmitFailure:   s.SubmitFailure,
		CancelRequested: s.CancelRequested,
	}
	if s.State == booking.StepVerify {
		resp.Validation = s.Draft.PatientInfo.Validate()
	}
	if s.DirectoryLoaded {
		resp.Providers = s.Selector.Visible(s.Providers)
		counts := directory.ProviderCounts(s.Providers)
		for _, dep := range s.Departments {
			resp.Departments = append(resp.Departments, departmentView{
				Department:    dep,
				ProviderCount: counts[dep.Name],
			})
		}
	}
	return resp
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "sessionID")
}

// CreateSession starts a booking workflow for the authenticated patient.
// POST /booking/sessions
func (h *BookingHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.controller.Start(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionView(session))
}

// GetSession returns the current workflow state, e.g. after a page refresh.
// GET /booking/sessions/{sessionID}
func (h *BookingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.controller.Get(r.Context(), sessionID(r))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session))
}

// UpdatePatientInfo writes the identity section. Field problems come back as
// a 422 with a field-to-message map; the data is saved either way.
// PUT /booking/sessions/{sessionID}/patient-info
func (h *BookingHandler) UpdatePatientInfo(w http.ResponseWriter, r *http.Request) {
	var info booking.PatientInfo
	if !decodeBody(w, r, &info) {
		return
	}
	session, problems, err := h.controller.UpdatePatientInfo(r.Context(), sessionID(r), info)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	resp := sessionView(session)
	resp.Validation = problems
	status := http.StatusOK
	if len(problems) > 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

// UpdateSelection applies provider-browsing changes: mode switches, filters,
// department choices, and picks.
// PUT /booking/sessions/{sessionID}/selection
func (h *BookingHandler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	var update booking.SelectionUpdate
	if !decodeBody(w, r, &update) {
		return
	}
	session, err := h.controller.UpdateSelection(r.Context(), sessionID(r), update)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session))
}

// RetryDirectory re-issues the directory fetches after a 503.
// POST /booking/sessions/{sessionID}/directory/retry
func (h *BookingHandler) RetryDirectory(w http.ResponseWriter, r *http.Request) {
	session, err := h.controller.RetryDirectory(r.Context(), sessionID(r))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session))
}

// UpdateDetails writes visit type, reason, and notification preferences.
// PUT /booking/sessions/{sessionID}/details
func (h *BookingHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	var update booking.DetailsUpdate
	if !decodeBody(w, r, &update) {
		return
	}
	session, err := h.controller.UpdateDetails(r.Context(), sessionID(r), update)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session))
}

// ListSlots generates the slot list for the chosen provider on a date.
// GET /booking/sessions/{sessionID}/slots?date=2026-09-07
func (h *BookingHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be formatted YYYY-MM-DD")
		return
	}
	session, err := h.controller.ListSlots(r.Context(), sessionID(r), date)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session))
}

// SelectSlot re-validates and reserves a displayed slot. Losing the race is
// a 200 with a notice, not an error: the patient picks another slot from the
// same list.
// POST /booking/sessions/{sessionID}/slots/select
func (h *BookingHandler) SelectSlot(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SlotID string `json:"slot_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	session, notice, err := h.controller.SelectSlot(r.Context(), sessionID(r), body.SlotID)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	resp := sessionView(session)
	resp.Notice = notice
	writeJSON(w, http.StatusOK, resp)
}

// Advance moves the workflow forward when the current step's validation
// passes; a blocked advance is a 200 with advanced=false.
// POST /booking/sessions/{sessionID}/advance
func (h *BookingHandler) Advance(w http.ResponseWriter, r *http.Request) {
	session, moved, err := h.controller.Advance(r.Context(), sessionID(r))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	resp := sessionView(session)
	resp.Advanced = &moved
	writeJSON(w, http.StatusOK, resp)
}

// Back moves the workflow backward, always preserving entered data.
// POST /booking/sessions/{sessionID}/back
func (h *BookingHandler) Back(w http.ResponseWriter, r *http.Request) {
	session, err := h.controller.Back(r.Context(), sessionID(r))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session))
}

// Submit finalizes the draft. A backend rejection is a 502 carrying the
// backend's reason; the session lands in the error view either way.
// POST /booking/sessions/{sessionID}/submit
func (h *BookingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	session, err := h.controller.Submit(r.Context(), sessionID(r))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	if session.State == booking.StateErrored {
		writeJSON(w, http.StatusBadGateway, sessionView(session))
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session))
}

// GetConfirmation renders the confirmation view of the finalized booking.
// GET /booking/sessions/{sessionID}/confirmation
func (h *BookingHandler) GetConfirmation(w http.ResponseWriter, r *http.Request) {
	view, err := h.controller.Confirmation(r.Context(), sessionID(r))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Modify enters the modification flow from the confirmation screen.
// POST /booking/sessions/{sessionID}/modify
func (h *BookingHandler) Modify(w http.ResponseWriter, r *http.Request) {
	session, err := h.controller.Modify(r.Context(), sessionID(r))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session))
}

// SaveModification writes the mutable subset and returns to confirmation.
// PUT /booking/sessions/{sessionID}/modification
func (h *BookingHandler) SaveModification(w http.ResponseWriter, r *http.Request) {
	var update booking.DetailsUpdate
	if !decodeBody(w, r, &update) {
		return
	}
	session, err := h.controller.SaveModification(r.Context(), sessionID(r), update)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session))
}

// RequestCancel records the first half of the two-step cancellation.
// POST /booking/sessions/{sessionID}/cancel
func (h *BookingHandler) RequestCancel(w http.ResponseWriter, r *http.Request) {
	session, err := h.controller.RequestCancel(r.Context(), sessionID(r))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session))
}

// ConfirmCancel executes a requested cancellation; the session is terminal
// afterwards.
// POST /booking/sessions/{sessionID}/cancel/confirm
func (h *BookingHandler) ConfirmCancel(w http.ResponseWriter, r *http.Request) {
	session, err := h.controller.ConfirmCancel(r.Context(), sessionID(r))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session))
}

// Done exits to the dashboard and discards the session.
// POST /booking/sessions/{sessionID}/done
func (h *BookingHandler) Done(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Done(r.Context(), sessionID(r)); err != nil {
		writeWorkflowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Abandon discards a failed draft from the error view.
// POST /booking/sessions/{sessionID}/abandon
func (h *BookingHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Abandon(r.Context(), sessionID(r)); err != nil {
		writeWorkflowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
