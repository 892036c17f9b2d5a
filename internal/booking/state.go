package booking

// State is the workflow's finite-state machine. One enum replaces the step
// index plus view flags so contradictory combinations cannot exist.
type State string

const (
	// StepVerify collects and validates the patient's identity section.
	StepVerify State = "step_verify"
	// StepSelectProvider picks a doctor directly or via department.
	StepSelectProvider State = "step_select_provider"
	// StepSelectSlot picks a date and an open time slot.
	StepSelectSlot State = "step_select_slot"
	// StateConfirmed shows the finalized booking.
	StateConfirmed State = "confirmed"
	// StateModifying edits the mutable subset of a confirmed booking.
	StateModifying State = "modifying"
	// StateErrored holds a failed submission awaiting retry or abandon.
	StateErrored State = "errored"
	// StateCancelled is terminal: the booking was cancelled and the
	// workflow must never re-enter StateConfirmed.
	StateCancelled State = "cancelled"
	// StateDone is terminal: the patient returned to the dashboard.
	StateDone State = "done"
)

// Terminal reports whether the workflow has exited.
func (s State) Terminal() bool {
	return s == StateCancelled || s == StateDone
}

// next returns the state advance() moves to. Validation gating happens in
// the controller; this is just the forward edge of the transition table.
func (s State) next() (State, bool) {
	switch s {
	case StepVerify:
		return StepSelectProvider, true
	case StepSelectProvider:
		return StepSelectSlot, true
	}
	return s, false
}

// prev returns the state goBack() moves to. Backward transitions are always
// permitted and never discard entered data.
func (s State) prev() (State, bool) {
	switch s {
	case StepSelectProvider:
		return StepVerify, true
	case StepSelectSlot:
		return StepSelectProvider, true
	case StateErrored:
		// "Try again" clears the error and returns to the last step.
		return StepSelectSlot, true
	}
	return s, false
}
