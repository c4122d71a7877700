package schedule

// SlotSelection is the normalized form of the two slot inputs a client may
// send: the current array field and the deprecated single-slot field.  The
// union is resolved once at the boundary; downstream code never branches on
// which field was used.
//
// Specified distinguishes "the client said nothing about slots" from "the
// client sent an explicit list".  An explicit empty list is a valid request
// meaning "release every slot"; an unspecified selection on update means
// "leave existing bindings untouched".
type SlotSelection struct {
	Specified bool
	IDs       []uint64
}

// UnspecifiedSlots returns the selection used when neither slot field was
// supplied.
func UnspecifiedSlots() SlotSelection { return SlotSelection{} }

// ExplicitSlots builds a specified selection from ids, dropping zero values
// and duplicates while preserving order.
func ExplicitSlots(ids []uint64) SlotSelection {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return SlotSelection{Specified: true, IDs: out}
}

// NormalizeSlotInput resolves the legacy single-slot field and the slot-list
// field into one canonical selection.  A supplied list always wins, even when
// empty.  Otherwise a supplied legacy slot is wrapped into a one-element
// list.  When neither is present the selection is unspecified.
func NormalizeSlotInput(legacy *uint64, list *[]uint64) SlotSelection {
	if list != nil {
		return ExplicitSlots(*list)
	}
	if legacy != nil && *legacy != 0 {
		return ExplicitSlots([]uint64{*legacy})
	}
	return UnspecifiedSlots()
}

// Diff compares the slots currently bound to an allocation with the slots a
// request asks for.  added holds requested slots that are not yet bound,
// removed holds bound slots the request no longer wants.  Both sets are
// reported so that audit events can name exactly what changed.
func Diff(current, requested []uint64) (added, removed []uint64) {
	cur := make(map[uint64]struct{}, len(current))
	for _, id := range current {
		cur[id] = struct{}{}
	}
	req := make(map[uint64]struct{}, len(requested))
	for _, id := range requested {
		req[id] = struct{}{}
	}
	added = make([]uint64, 0)
	for _, id := range requested {
		if _, ok := cur[id]; !ok {
			added = append(added, id)
		}
	}
	removed = make([]uint64, 0)
	for _, id := range current {
		if _, ok := req[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}
