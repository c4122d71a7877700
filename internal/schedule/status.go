// Package schedule holds the booking rules of the OT allocation engine: the
// allocation status state machine, slot-selection normalization and diffing,
// and payload validation against collaborator lookups.  Everything here is
// side-effect free; persistence happens in the repository layer.
package schedule

// Status enumerates the lifecycle states of an allocation.  Scheduled is the
// initial state.  Cancelled and Postponed are terminal for booking purposes:
// entering either of them releases every slot bound to the allocation.
type Status string

const (
	StatusScheduled  Status = "Scheduled"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
	StatusPostponed  Status = "Postponed"
)

// ParseStatus validates a client-supplied status string.  The second return
// value is false when the string is not one of the enumerated values.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusPostponed:
		return Status(s), true
	}
	return "", false
}

// ReleasesSlots reports whether the status forces the allocation's slot
// bindings to be released.
func (s Status) ReleasesSlots() bool {
	return s == StatusCancelled || s == StatusPostponed
}
