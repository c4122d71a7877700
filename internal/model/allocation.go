package model

import "time"

// Allocation is one surgical booking: it links a patient, an operating
// theater and the coordinating staff, and owns a set of slot bindings for a
// single date.  Optional references are pointers so that a missing value is
// distinguishable from zero.
//
// Fields:
//
//	ID               – primary key identifier.
//	PatientID        – patient undergoing the procedure (required).
//	TheaterID        – operating theater (required).
//	LeadSurgeonID    – lead surgeon (required).
//	AppointmentID    – originating appointment, if any.
//	EmergencySlotID  – originating emergency-bed slot, if any.
//	SurgeryTypeID    – surgery-type catalog entry, if any.
//	AssistantID      – assistant doctor.
//	AnaesthetistID   – anaesthetist.
//	NurseID          – nurse.
//	BillID           – associated bill.
//	CreatedBy        – staff member who created the record.
//	AllocDate        – date the theater is booked for.
//	StartTime        – planned start (hour:minute[:second]).
//	EndTime          – planned end.
//	ActualStart      – actual start, recorded afterwards.
//	ActualEnd        – actual end.
//	DurationMinutes  – planned duration.
//	OperationDetails – free-text description of the operation.
//	PreOpNotes       – pre-operative notes.
//	PostOpNotes      – post-operative notes.
//	Documents        – document URLs, serialized as text in storage.
//	Status           – Scheduled, InProgress, Completed, Cancelled, Postponed.
//	IsActive         – soft-delete flag (Active/Inactive).
type Allocation struct {
	ID               uint64     // ot_allocations.id
	PatientID        uint64     // ot_allocations.patient_id
	TheaterID        uint64     // ot_allocations.theater_id
	LeadSurgeonID    uint64     // ot_allocations.lead_surgeon_id
	AppointmentID    *uint64    // ot_allocations.appointment_id (nullable)
	EmergencySlotID  *uint64    // ot_allocations.emergency_slot_id (nullable)
	SurgeryTypeID    *uint64    // ot_allocations.surgery_type_id (nullable)
	AssistantID      *uint64    // ot_allocations.assistant_id (nullable)
	AnaesthetistID   *uint64    // ot_allocations.anaesthetist_id (nullable)
	NurseID          *uint64    // ot_allocations.nurse_id (nullable)
	BillID           *uint64    // ot_allocations.bill_id (nullable)
	CreatedBy        *uint64    // ot_allocations.created_by (nullable)
	AllocDate        time.Time  // ot_allocations.alloc_date
	StartTime        *string    // ot_allocations.start_time (nullable)
	EndTime          *string    // ot_allocations.end_time (nullable)
	ActualStart      *string    // ot_allocations.actual_start (nullable)
	ActualEnd        *string    // ot_allocations.actual_end (nullable)
	DurationMinutes  *uint32    // ot_allocations.duration_minutes (nullable)
	OperationDetails *string    // ot_allocations.operation_details (nullable)
	PreOpNotes       *string    // ot_allocations.pre_op_notes (nullable)
	PostOpNotes      *string    // ot_allocations.post_op_notes (nullable)
	Documents        []string   // ot_allocations.documents (serialized)
	Status           string     // ot_allocations.status
	IsActive         string     // ot_allocations.is_active
	CreatedAt        time.Time  // ot_allocations.created_at
	UpdatedAt        time.Time  // ot_allocations.updated_at
}
