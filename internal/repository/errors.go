// Package repository implements persistence for the OT allocation engine on
// top of database/sql.  This file defines sentinel errors shared across
// repositories so that handlers can map failure scenarios to HTTP responses
// without inspecting driver internals.
package repository

import "errors"

// ErrSlotTaken is returned when a slot-binding write collides with another
// allocation's active hold on the same slot and date.  The uniqueness index
// uq_slot_date on ot_slot_bindings enforces the invariant; the repository
// translates the driver's duplicate-key error into this sentinel.  Handlers
// should translate it into an HTTP 409 response.
var ErrSlotTaken = errors.New("slot already booked")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state not otherwise classified.  Handlers should translate
// this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
