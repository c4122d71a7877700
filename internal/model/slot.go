package model

import "time"

// Slot is a fixed, reusable time window belonging to one theater.  Slots are
// owned by the theater catalog; the allocation engine only reads them and
// attaches or detaches bindings.
type Slot struct {
	ID         uint64 // ot_slots.id
	TheaterID  uint64 // ot_slots.theater_id
	SlotNumber uint32 // ot_slots.slot_number (sequence within the theater)
	StartTime  string // ot_slots.start_time
	EndTime    string // ot_slots.end_time
	Status     string // ot_slots.status (Active/Inactive)
}

// SlotBinding associates one allocation with one slot on one date.  The
// binding carries its own copy of the allocation date; all bindings of an
// allocation share the same date.  Rows are created when slots are booked,
// reconciled on update and removed on cancel, postpone or delete.
type SlotBinding struct {
	AllocationID uint64    // ot_slot_bindings.allocation_id
	SlotID       uint64    // ot_slot_bindings.slot_id
	AllocDate    time.Time // ot_slot_bindings.alloc_date
	CreatedAt    time.Time // ot_slot_bindings.created_at
}
