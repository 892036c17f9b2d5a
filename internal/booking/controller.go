package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/harborview-health/patient-portal/internal/appointments"
	"github.com/harborview-health/patient-portal/internal/directory"
	"github.com/harborview-health/patient-portal/internal/identity"
	"github.com/harborview-health/patient-portal/internal/observability/metrics"
	"github.com/harborview-health/patient-portal/internal/slots"
	"github.com/harborview-health/patient-portal/pkg/logging"
)

// Notifier receives fire-and-forget notification requests. The workflow
// never blocks on or retries notification delivery.
type Notifier interface {
	AppointmentConfirmed(ctx context.Context, req appointments.SubmitRequest, confirmationID string)
	AppointmentCancelled(ctx context.Context, req appointments.SubmitRequest, confirmationID string)
}

// Controller owns the workflow: it is the draft's single writer, sequences
// the steps, and routes to confirmation, modification, and error views.
// Steps request mutation through its methods; nothing else touches a session.
type Controller struct {
	store     *SessionStore
	dir       directory.Repository
	engine    *slots.Engine
	submitter appointments.Submitter
	audit     *appointments.AuditStore
	notifier  Notifier
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
	tracer    trace.Tracer
}

// Config wires the controller's collaborators. Audit, notifier, and metrics
// are optional.
type Config struct {
	Store     *SessionStore
	Directory directory.Repository
	Engine    *slots.Engine
	Submitter appointments.Submitter
	Audit     *appointments.AuditStore
	Notifier  Notifier
	Metrics   *metrics.BookingMetrics
	Logger    *logging.Logger
}

// NewController constructs the workflow controller.
func NewController(cfg Config) *Controller {
	if cfg.Store == nil {
		panic("booking: session store required")
	}
	if cfg.Directory == nil {
		panic("booking: directory repository required")
	}
	if cfg.Engine == nil {
		panic("booking: slot engine required")
	}
	if cfg.Submitter == nil {
		panic("booking: submitter required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Controller{
		store:     cfg.Store,
		dir:       cfg.Directory,
		engine:    cfg.Engine,
		submitter: cfg.Submitter,
		audit:     cfg.Audit,
		notifier:  cfg.Notifier,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		tracer:    otel.Tracer("portal.internal.booking"),
	}
}

// Start opens a workflow session for the authenticated patient and seeds the
// draft's identity section from their profile. An unauthenticated or
// non-patient actor is a terminal failure: the caller must re-authenticate.
func (c *Controller) Start(ctx context.Context) (*Session, error) {
	ctx, span := c.tracer.Start(ctx, "booking.start")
	defer span.End()

	profile, _ := identity.FromContext(ctx)
	patient, err := identity.RequirePatient(profile)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		PatientID: patient.UserID,
		State:     StepVerify,
		Draft: AppointmentDraft{
			PatientInfo:     FromProfile(patient),
			AppointmentType: TypeConsultation,
		},
		Selector:  directory.NewSelectionState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	span.SetAttributes(attribute.String("portal.session_id", session.ID))

	// Best effort here; the advance into provider selection retries and
	// surfaces a retryable error if the directory is still down.
	if err := c.loadDirectory(ctx, session); err != nil {
		c.logger.Warn("provider directory unavailable at session start", "error", err)
	}

	if err := c.store.Save(ctx, session); err != nil {
		return nil, err
	}
	c.metrics.ObserveSessionStarted()
	c.logger.Info("booking session started", "session_id", session.ID, "patient_id", patient.UserID)
	return session, nil
}

// Get returns the session for display or resume-after-refresh.
func (c *Controller) Get(ctx context.Context, sessionID string) (*Session, error) {
	return c.store.Load(ctx, sessionID)
}

// UpdatePatientInfo writes the identity section and returns the per-field
// validation map; validation blocks advancing, never errors.
func (c *Controller) UpdatePatientInfo(ctx context.Context, sessionID string, info PatientInfo) (*Session, map[string]string, error) {
	session, err := c.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.State != StepVerify {
		return nil, nil, ErrInvalidState
	}

	session.Draft.PatientInfo = info
	session.markDirty()
	if err := c.store.Save(ctx, session); err != nil {
		return nil, nil, err
	}
	return session, info.Validate(), nil
}

// SelectionUpdate mutates the provider selection step. Fields are applied in
// declaration order; nil fields are left untouched.
type SelectionUpdate struct {
	Mode         *directory.Mode `json:"mode,omitempty"`
	Search       *string         `json:"search,omitempty"`
	Specialty    *string         `json:"specialty,omitempty"`
	DepartmentID *string         `json:"department_id,omitempty"`
	Pick         *string         `json:"pick,omitempty"`
}

// UpdateSelection applies browsing and pick changes to the selection step.
// Picking only stores a pending selection; Advance commits it to the draft.
func (c *Controller) UpdateSelection(ctx context.Context, sessionID string, update SelectionUpdate) (*Session, error) {
	session, err := c.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != StepSelectProvider {
		return nil, ErrInvalidState
	}

	if update.Mode != nil {
		session.Selector.SwitchMode(*update.Mode)
	}
	if update.Search != nil {
		session.Selector.SetSearch(*update.Search)
	}
	if update.Specialty != nil {
		session.Selector.SetSpecialty(*update.Specialty)
	}
	if update.DepartmentID != nil {
		for _, dep := range session.Departments {
			if dep.ID == *update.DepartmentID {
				session.Selector.ChooseDepartment(dep)
				break
			}
		}
	}
	if update.Pick != nil {
		session.Selector.Pick(*update.Pick)
	}

	if err := c.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// RetryDirectory re-issues both directory fetches after a fetch failure.
func (c *Controller) RetryDirectory(ctx context.Context, sessionID string) (*Session, error) {
	session, err := c.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := c.loadDirectory(ctx, session); err != nil {
		return nil, err
	}
	if err := c.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// DetailsUpdate carries the draft fields editable outside identity and
// selection: visit type, reason, and notification preferences.
type DetailsUpdate struct {
	AppointmentType *AppointmentType   `json:"appointment_type,omitempty"`
	Reason          *string            `json:"reason,omitempty"`
	Prefs           *NotificationPrefs `json:"notification_prefs,omitempty"`
}

func (d DetailsUpdate) apply(draft *AppointmentDraft) {
	if d.AppointmentType != nil && d.AppointmentType.Valid() {
		draft.AppointmentType = *d.AppointmentType
	}
	if d.Reason != nil {
		draft.Reason = *d.Reason
	}
	if d.Prefs != nil {
		draft.NotificationPrefs = *d.Prefs
	}
}

// UpdateDetails writes visit type, reason, and notification preferences
// while the draft is still being assembled.
func (c *Controller) UpdateDetails(ctx context.Context, sessionID string, update DetailsUpdate) (*Session, error) {
	session, err := c.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch session.State {
	case StepVerify, StepSelectProvider, StepSelectSlot:
	default:
		return nil, ErrInvalidState
	}

	update.apply(&session.Draft)
	session.markDirty()
	if err := c.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ListSlots generates a fresh slot list instance for the committed provider
// and the given date. A new instance invalidates any pending slot selection.
func (c *Controller) ListSlots(ctx context.Context, sessionID, date string) (*Session, error) {
	session, err := c.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != StepSelectSlot {
		return nil, ErrInvalidState
	}
	if session.Draft.SelectedProvider == nil {
		return nil, ErrMissingPrecondition
	}

	list, suggestions, err := c.engine.Generate(ctx, *session.Draft.SelectedProvider, date)
	if err != nil {
		return nil, err
	}
	session.SlotList = list
	session.SuggestedDates = suggestions
	if sel := session.Draft.SelectedSlot; sel != nil &&
		(sel.Ref.ProviderID != list.ProviderID || sel.Ref.Date != date) {
		c.releaseHeldSlot(ctx, session)
	}
	if err := c.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SlotNotice is the non-fatal outcome of a lost slot race.
type SlotNotice struct {
	SlotTaken bool   `json:"slot_taken"`
	Message   string `json:"message"`
}

// SelectSlot re-validates the chosen slot at selection time. A lost race
// flips that slot in the displayed list, clears the pending selection, and
// returns a notice; the rest of the list stays selectable.
func (c *Controller) SelectSlot(ctx context.Context, sessionID, slotID string) (*Session, *SlotNotice, error) {
	session, err := c.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.State != StepSelectSlot {
		return nil, nil, ErrInvalidState
	}
	if session.SlotList == nil {
		return nil, nil, ErrMissingPrecondition
	}

	slot, err := c.engine.Select(ctx, session.ID, session.SlotList, slotID)
	if err != nil {
		if errors.Is(err, slots.ErrSlotTaken) {
			session.Draft.SelectedSlot = nil
			session.markDirty()
			if saveErr := c.store.Save(ctx, session); saveErr != nil {
				return nil, nil, saveErr
			}
			c.metrics.ObserveSlotRaceLost()
			return session, &SlotNotice{
				SlotTaken: true,
				Message:   "That time was just taken by another patient. Please pick a different slot.",
			}, nil
		}
		return nil, nil, err
	}

	session.Draft.SelectedSlot = slot
	session.markDirty()
	if err := c.store.Save(ctx, session); err != nil {
		return nil, nil, err
	}
	return session, nil, nil
}

// Advance moves the workflow forward when the current step's validation
// passes. A blocked advance changes nothing and raises no error.
func (c *Controller) Advance(ctx context.Context, sessionID string) (*Session, bool, error) {
	session, err := c.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}

	next, ok := session.State.next()
	if !ok {
		return session, false, nil
	}

	switch session.State {
	case StepVerify:
		if len(session.Draft.PatientInfo.Validate()) > 0 {
			return session, false, nil
		}
		if !session.DirectoryLoaded {
			if err := c.loadDirectory(ctx, session); err != nil {
				return nil, false, err
			}
		}
	case StepSelectProvider:
		pending := session.Selector.Pending(session.Providers)
		if pending == nil {
			return session, false, nil
		}
		// A slot belongs to one provider's calendar. Committing a different
		// provider invalidates the held hour and the rendered list.
		if prev := session.Draft.SelectedProvider; prev != nil && prev.ID != pending.ID {
			c.releaseHeldSlot(ctx, session)
			session.SlotList = nil
			session.SuggestedDates = nil
		}
		session.Draft.SelectedProvider = pending
		session.markDirty()
	}

	c.setState(session, next)
	if err := c.store.Save(ctx, session); err != nil {
		return nil, false, err
	}
	return session, true, nil
}

// Back moves the workflow backward unconditionally, preserving every field
// already entered. From the error view it returns to slot selection with the
// previous selections intact.
func (c *Controller) Back(ctx context.Context, sessionID string) (*Session, error) {
	session, err := c.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	prev, ok := session.State.prev()
	if !ok {
		return session, nil
	}
	if session.State == StateErrored {
		session.SubmitFailure = ""
	}
	c.setState(session, prev)
	if err := c.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Submit sends the finalized draft to the persistence backend. It is
// idempotent per draft identity: an unmodified draft is never submitted
// twice. Failure routes to the error view with the backend's reason
// surfaced verbatim.
func (c *Controller) Submit(ctx context.Context, sessionID string) (*Session, error) {
	ctx, span := c.tracer.Start(ctx, "booking.submit")
	defer span.End()

	session, err := c.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != StepSelectSlot {
		return nil, ErrInvalidState
	}
	if !session.Draft.ReadyToSubmit() {
		return nil, ErrMissingPrecondition
	}

	fingerprint := session.Draft.Fingerprint()
	if session.Submitted && session.SubmittedFingerprint == fingerprint {
		// Unmodified draft: do not create a second booking.
		c.setState(session, StateConfirmed)
		if err := c.store.Save(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}

	req := c.submitRequest(session)
	start := time.Now()
	conf, err := c.submitter.Submit(ctx, req)
	c.metrics.ObserveSubmitLatency(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		var rejection *appointments.SubmissionError
		reason := "the booking service is temporarily unavailable"
		if errors.As(err, &rejection) {
			reason = rejection.Reason
		}
		session.SubmitFailure = reason
		c.setState(session, StateErrored)
		c.metrics.ObserveSubmission("failed")
		c.logger.Error("appointment submission failed",
			"session_id", session.ID,
			"error", err,
		)
		if err := c.store.Save(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}

	session.Submitted = true
	session.SubmittedFingerprint = fingerprint
	session.ConfirmationID = conf.ID
	session.SubmitFailure = ""
	c.setState(session, StateConfirmed)
	c.metrics.ObserveSubmission("ok")
	if err := c.store.Save(ctx, session); err != nil {
		return nil, err
	}

	c.logger.Info("appointment confirmed",
		"session_id", session.ID,
		"confirmation_id", conf.ID,
		"provider_id", req.ProviderID,
		"date", req.Date,
	)
	if err := c.audit.Append(ctx, conf.ID, session.PatientID, appointments.AuditSubmitted, map[string]any{
		"provider_id": req.ProviderID,
		"date":        req.Date,
		"hour":        req.Hour,
	}); err != nil {
		c.logger.Warn("failed to append audit event", "error", err)
	}
	if c.notifier != nil {
		c.notifier.AppointmentConfirmed(ctx, req, conf.ID)
	}
	return session, nil
}

// ConfirmationView is the finalized booking as the confirmation screen
// renders it.
type ConfirmationView struct {
	ConfirmationID string   `json:"confirmation_id"`
	PatientName    string   `json:"patient_name"`
	ProviderName   string   `json:"provider_name"`
	Specialty      string   `json:"specialty"`
	Date           string   `json:"date"`
	Time           string   `json:"time"`
	Type           string   `json:"type"`
	Reason         string   `json:"reason"`
	Channels       []string `json:"notification_channels"`
}

// Confirmation builds the confirmation view. A session that reaches it
// without a provider and slot is a defect; the caller routes the
// missing-precondition error to a safe fallback instead of rendering.
func (c *Controller) Confirmation(ctx context.Context, sessionID string) (*ConfirmationView, error) {
	session, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != StateConfirmed && session.State != StateModifying {
		return nil, ErrInvalidState
	}
	if session.Draft.SelectedProvider == nil || session.Draft.SelectedSlot == nil {
		return nil, ErrMissingPrecondition
	}

	return &ConfirmationView{
		ConfirmationID: session.ConfirmationID,
		PatientName:    session.Draft.PatientInfo.FullName,
		ProviderName:   session.Draft.SelectedProvider.Name,
		Specialty:      session.Draft.SelectedProvider.Specialty,
		Date:           session.Draft.SelectedSlot.Ref.Date,
		Time:           session.Draft.SelectedSlot.Display,
		Type:           string(session.Draft.AppointmentType),
		Reason:         session.Draft.Reason,
		Channels:       session.Draft.NotificationPrefs.ActiveChannels(),
	}, nil
}

// Modify enters the modification flow from the confirmation screen.
func (c *Controller) Modify(ctx context.Context, sessionID string) (*Session, error) {
	session, err := c.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != StateConfirmed {
		return nil, ErrInvalidState
	}
	c.setState(session, StateModifying)
	if err := c.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SaveModification writes the mutable subset back into the draft and returns
// to the confirmation screen. Provider and slot are immutable once
// confirmed: changing doctor or time requires cancel-and-rebook.
func (c *Controller) SaveModification(ctx context.Context, sessionID string, update DetailsUpdate) (*Session, error) {
	session, err := c.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != StateModifying {
		return nil, ErrInvalidState
	}

	update.apply(&session.Draft)
	session.markDirty()
	session.CancelRequested = false
	c.setState(session, StateConfirmed)
	if err := c.store.Save(ctx, session); err != nil {
		return nil, err
	}
	if err := c.audit.Append(ctx, session.ConfirmationID, session.PatientID, appointments.AuditModified, map[string]any{
		"type":   string(session.Draft.AppointmentType),
		"reason": session.Draft.Reason,
	}); err != nil {
		c.logger.Warn("failed to append audit event", "error", err)
	}
	return session, nil
}

// RequestCancel records the first half of the two-step cancellation.
func (c *Controller) RequestCancel(ctx context.Context, sessionID string) (*Session, error) {
	session, err := c.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != StateModifying {
		return nil, ErrInvalidState
	}
	session.CancelRequested = true
	if err := c.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ConfirmCancel executes a requested cancellation. The outcome is terminal:
// the same session can never be resurrected into a confirmed booking.
func (c *Controller) ConfirmCancel(ctx context.Context, sessionID string) (*Session, error) {
	session, err := c.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.CancelRequested {
		return nil, ErrNoCancelRequested
	}

	req := c.submitRequest(session)
	if session.ConfirmationID != "" {
		if err := c.submitter.Cancel(ctx, session.ConfirmationID); err != nil {
			return nil, fmt.Errorf("booking: cancel appointment: %w", err)
		}
	}
	if session.Draft.SelectedSlot != nil {
		if err := c.engine.Release(ctx, session.ID, session.Draft.SelectedSlot.Ref); err != nil {
			c.logger.Warn("failed to release slot hold", "error", err)
		}
	}
	c.setState(session, StateCancelled)
	if err := c.store.Save(ctx, session); err != nil {
		return nil, err
	}

	c.logger.Info("appointment cancelled",
		"session_id", session.ID,
		"confirmation_id", session.ConfirmationID,
	)
	if err := c.audit.Append(ctx, session.ConfirmationID, session.PatientID, appointments.AuditCancelled, nil); err != nil {
		c.logger.Warn("failed to append audit event", "error", err)
	}
	if c.notifier != nil && session.ConfirmationID != "" {
		c.notifier.AppointmentCancelled(ctx, req, session.ConfirmationID)
	}
	return session, nil
}

// Done hands the workflow off to the dashboard and discards the session. It
// is an action of the confirmation and cancelled screens only; a failed
// draft leaves through Abandon instead.
func (c *Controller) Done(ctx context.Context, sessionID string) error {
	session, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.State != StateConfirmed && session.State != StateCancelled {
		return ErrInvalidState
	}
	c.setState(session, StateDone)
	return c.store.Delete(ctx, session.ID)
}

// Abandon discards the draft from the error view.
func (c *Controller) Abandon(ctx context.Context, sessionID string) error {
	session, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.State != StateErrored {
		return ErrInvalidState
	}
	return c.store.Delete(ctx, session.ID)
}

// loadMutable loads a session and guards the terminal states.
func (c *Controller) loadMutable(ctx context.Context, sessionID string) (*Session, error) {
	session, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State == StateCancelled {
		return nil, ErrSessionCancelled
	}
	if session.State == StateDone {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (c *Controller) loadDirectory(ctx context.Context, session *Session) error {
	providers, err := c.dir.ListProviders(ctx)
	if err != nil {
		session.DirectoryLoaded = false
		return err
	}
	departments, err := c.dir.ListDepartments(ctx)
	if err != nil {
		session.DirectoryLoaded = false
		return err
	}
	session.Providers = providers
	session.Departments = departments
	session.DirectoryLoaded = true
	return nil
}

// releaseHeldSlot returns the reserved hour to the pool and clears the
// pending slot selection.
func (c *Controller) releaseHeldSlot(ctx context.Context, session *Session) {
	slot := session.Draft.SelectedSlot
	if slot == nil {
		return
	}
	if err := c.engine.Release(ctx, session.ID, slot.Ref); err != nil {
		c.logger.Warn("failed to release held slot",
			"error", err,
			"session_id", session.ID,
			"slot", slot.Ref.Key(),
		)
	}
	session.Draft.SelectedSlot = nil
	session.markDirty()
}

func (c *Controller) setState(session *Session, next State) {
	if session.State == next {
		return
	}
	c.metrics.ObserveTransition(string(session.State), string(next))
	session.State = next
}

func (c *Controller) submitRequest(session *Session) appointments.SubmitRequest {
	req := appointments.SubmitRequest{
		SessionID:       session.ID,
		PatientID:       session.PatientID,
		PatientName:     session.Draft.PatientInfo.FullName,
		PatientEmail:    session.Draft.PatientInfo.Email,
		PatientPhone:    session.Draft.PatientInfo.Phone,
		InsuranceRef:    session.Draft.PatientInfo.InsuranceRef,
		AppointmentType: string(session.Draft.AppointmentType),
		Reason:          session.Draft.Reason,
		NotifyEmail:     session.Draft.NotificationPrefs.Email,
		NotifySMS:       session.Draft.NotificationPrefs.SMS,
	}
	if session.Draft.SelectedProvider != nil {
		req.ProviderID = session.Draft.SelectedProvider.ID
		req.ProviderName = session.Draft.SelectedProvider.Name
	}
	if session.Draft.SelectedSlot != nil {
		req.Date = session.Draft.SelectedSlot.Ref.Date
		req.Hour = session.Draft.SelectedSlot.Ref.Hour
		req.DisplayTime = session.Draft.SelectedSlot.Display
	}
	return req
}
