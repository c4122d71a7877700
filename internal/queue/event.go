// Package queue defines message payloads exchanged over the message broker.
package queue

// AllocationAuditEvent is published after every committed allocation write.
// It carries the slot delta of the write so downstream consumers can log or
// trigger notifications without querying the primary database.  Action is
// one of "created", "updated" or "deleted".
type AllocationAuditEvent struct {
	Action        string   `json:"action"`
	AllocationID  uint64   `json:"allocation_id"`
	PatientID     uint64   `json:"patient_id,omitempty"`
	TheaterID     uint64   `json:"theater_id,omitempty"`
	Status        string   `json:"status,omitempty"`
	Date          string   `json:"ot_allocation_date,omitempty"`
	SlotsAdded    []uint64 `json:"slots_added,omitempty"`
	SlotsReleased []uint64 `json:"slots_released,omitempty"`
	ForcedRelease bool     `json:"forced_release,omitempty"`
	ActorID       uint64   `json:"actor_id,omitempty"`
	OccurredAt    string   `json:"occurred_at"`
}
