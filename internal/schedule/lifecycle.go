package schedule

// TransitionPlan is the outcome of applying the status state machine to an
// update request.  Effective is the slot selection the store must reconcile
// against; when the effective status is terminal it overrides whatever the
// caller sent.  Released lists the slot IDs freed by a forced transition and
// exists for audit logging only; it is never persisted.
type TransitionPlan struct {
	Effective     SlotSelection
	Released      []uint64
	ForcedRelease bool
}

// PlanTransition decides how an update affects slot bindings.
//
// The rule keys off the effective status: the requested one when the payload
// sets it, the stored one otherwise.  Whenever the effective status is
// Cancelled or Postponed the selection is pinned to an explicit empty list,
// so every binding is released and none can be added — a terminal allocation
// never holds a slot, regardless of any slot list the caller supplied.
// ForcedRelease is set only when the request is what moved the allocation
// into the terminal state; re-applying a terminal status is idempotent.
// Non-terminal effective statuses pass the caller's selection through
// untouched.
//
// stored is the allocation's current persisted status, requested is the
// status from the update payload (nil when omitted), sel is the normalized
// slot selection from the payload and current lists the slot IDs bound right
// now.
func PlanTransition(stored Status, requested *Status, sel SlotSelection, current []uint64) TransitionPlan {
	effective := stored
	if requested != nil {
		effective = *requested
	}
	if effective.ReleasesSlots() {
		released := make([]uint64, len(current))
		copy(released, current)
		return TransitionPlan{
			Effective:     ExplicitSlots(nil),
			Released:      released,
			ForcedRelease: !stored.ReleasesSlots(),
		}
	}
	return TransitionPlan{Effective: sel}
}
