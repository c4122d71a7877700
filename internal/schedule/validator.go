package schedule

import (
	"context"
	"fmt"

	"github.com/iliyamo/ot-slot-booking/internal/datefmt"
)

// Mode selects which validation rules apply.  Create enforces the mandatory
// fields; Update treats every field as optional and checks only what the
// payload supplies.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

// FieldError describes one rejected field.  Code is machine-readable
// ("required", "bad_format", "invalid_value", "reference_not_found",
// "slot_theater_mismatch"); Message is safe to show to clients.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Lookups is the read-only view of the collaborator subsystems the validator
// resolves references against.  Implementations must not mutate anything.
type Lookups interface {
	PatientExists(ctx context.Context, id uint64) (bool, error)
	TheaterExists(ctx context.Context, id uint64) (bool, error)
	StaffExists(ctx context.Context, id uint64) (bool, error)
	BillExists(ctx context.Context, id uint64) (bool, error)
	AppointmentExists(ctx context.Context, id uint64) (bool, error)
	SurgeryTypeExists(ctx context.Context, id uint64) (bool, error)
	// SlotTheater returns the parent theater of a slot.  ok is false when the
	// slot does not exist.
	SlotTheater(ctx context.Context, id uint64) (theaterID uint64, ok bool, err error)
}

// Payload carries every field an allocation create or update request may
// supply.  Pointer fields distinguish "omitted" from "set"; the handler
// binds the JSON body straight into this shape.  Slots is the normalized
// selection from NormalizeSlotInput.  CurrentTheaterID must hold the stored
// theater on update so slot parent checks use the right theater when the
// payload does not change it.
type Payload struct {
	PatientID        *uint64
	TheaterID        *uint64
	LeadSurgeonID    *uint64
	AssistantID      *uint64
	AnaesthetistID   *uint64
	NurseID          *uint64
	BillID           *uint64
	AppointmentID    *uint64
	SurgeryTypeID    *uint64
	CreatedBy        *uint64
	AllocationDate   *string
	StartTime        *string
	EndTime          *string
	ActualStart      *string
	ActualEnd        *string
	Status           *string
	Slots            SlotSelection
	CurrentTheaterID uint64
}

// Validator checks allocation payloads before any write happens.  A
// non-empty result is a hard rejection; callers must not apply any part of
// the payload.
type Validator struct {
	lookups Lookups
}

// NewValidator constructs a Validator.  lookups must be non-nil.
func NewValidator(lookups Lookups) *Validator {
	if lookups == nil {
		panic("nil lookups passed to NewValidator")
	}
	return &Validator{lookups: lookups}
}

// Validate returns the list of field errors for the payload.  The error
// return is reserved for lookup failures (database errors); validation
// problems never surface there.
func (v *Validator) Validate(ctx context.Context, p Payload, mode Mode) ([]FieldError, error) {
	var errs []FieldError

	if mode == ModeCreate {
		if p.PatientID == nil {
			errs = append(errs, required("PatientId"))
		}
		if p.TheaterID == nil {
			errs = append(errs, required("OTId"))
		}
		if p.LeadSurgeonID == nil {
			errs = append(errs, required("LeadSurgeonId"))
		}
		if p.AllocationDate == nil {
			errs = append(errs, required("OTAllocationDate"))
		}
	}

	if p.AllocationDate != nil {
		if _, err := datefmt.ToStorage(*p.AllocationDate); err != nil {
			errs = append(errs, FieldError{Field: "OTAllocationDate", Code: "bad_format",
				Message: "date must be in day-month-year format"})
		}
	}
	for field, val := range map[string]*string{
		"StartTime":   p.StartTime,
		"EndTime":     p.EndTime,
		"ActualStart": p.ActualStart,
		"ActualEnd":   p.ActualEnd,
	} {
		if val != nil && !datefmt.ValidClock(*val) {
			errs = append(errs, FieldError{Field: field, Code: "bad_format",
				Message: "time must be hour:minute or hour:minute:second"})
		}
	}
	if p.Status != nil {
		st, ok := ParseStatus(*p.Status)
		if !ok {
			errs = append(errs, FieldError{Field: "OperationStatus", Code: "invalid_value",
				Message: "unknown status value"})
		}
		// A terminal allocation never holds slots, so creating one with a
		// slot list is a contradiction.  On update the lifecycle rule
		// releases bindings instead of rejecting the request.
		if mode == ModeCreate && ok && st.ReleasesSlots() && p.Slots.Specified && len(p.Slots.IDs) > 0 {
			errs = append(errs, FieldError{Field: "OTSlotIds", Code: "invalid_value",
				Message: "cannot bind slots to a cancelled or postponed allocation"})
		}
	}

	refErrs, err := v.checkReferences(ctx, p)
	if err != nil {
		return nil, err
	}
	errs = append(errs, refErrs...)

	slotErrs, err := v.checkSlots(ctx, p)
	if err != nil {
		return nil, err
	}
	errs = append(errs, slotErrs...)

	return errs, nil
}

// checkReferences resolves every supplied foreign reference against its
// owning collaborator.
func (v *Validator) checkReferences(ctx context.Context, p Payload) ([]FieldError, error) {
	var errs []FieldError
	check := func(field string, id *uint64, exists func(context.Context, uint64) (bool, error)) error {
		if id == nil {
			return nil
		}
		ok, err := exists(ctx, *id)
		if err != nil {
			return err
		}
		if !ok {
			errs = append(errs, notFound(field))
		}
		return nil
	}
	if err := check("PatientId", p.PatientID, v.lookups.PatientExists); err != nil {
		return nil, err
	}
	if err := check("OTId", p.TheaterID, v.lookups.TheaterExists); err != nil {
		return nil, err
	}
	if err := check("LeadSurgeonId", p.LeadSurgeonID, v.lookups.StaffExists); err != nil {
		return nil, err
	}
	if err := check("AssistantDoctorId", p.AssistantID, v.lookups.StaffExists); err != nil {
		return nil, err
	}
	if err := check("AnaesthetistId", p.AnaesthetistID, v.lookups.StaffExists); err != nil {
		return nil, err
	}
	if err := check("NurseId", p.NurseID, v.lookups.StaffExists); err != nil {
		return nil, err
	}
	if err := check("BillId", p.BillID, v.lookups.BillExists); err != nil {
		return nil, err
	}
	if err := check("AppointmentId", p.AppointmentID, v.lookups.AppointmentExists); err != nil {
		return nil, err
	}
	if err := check("SurgeryTypeId", p.SurgeryTypeID, v.lookups.SurgeryTypeExists); err != nil {
		return nil, err
	}
	if err := check("CreatedBy", p.CreatedBy, v.lookups.StaffExists); err != nil {
		return nil, err
	}
	return errs, nil
}

// checkSlots verifies that every requested slot exists and belongs to the
// effective theater: the proposed theater when the payload sets one, the
// stored theater otherwise.
func (v *Validator) checkSlots(ctx context.Context, p Payload) ([]FieldError, error) {
	if !p.Slots.Specified || len(p.Slots.IDs) == 0 {
		return nil, nil
	}
	theater := p.CurrentTheaterID
	if p.TheaterID != nil {
		theater = *p.TheaterID
	}
	var errs []FieldError
	for _, slotID := range p.Slots.IDs {
		parent, ok, err := v.lookups.SlotTheater(ctx, slotID)
		if err != nil {
			return nil, err
		}
		if !ok {
			errs = append(errs, FieldError{Field: "OTSlotIds", Code: "reference_not_found",
				Message: fmt.Sprintf("slot %d does not exist", slotID)})
			continue
		}
		if theater != 0 && parent != theater {
			errs = append(errs, FieldError{Field: "OTSlotIds", Code: "slot_theater_mismatch",
				Message: fmt.Sprintf("slot %d belongs to a different theater", slotID)})
		}
	}
	return errs, nil
}

func required(field string) FieldError {
	return FieldError{Field: field, Code: "required", Message: field + " is required"}
}

func notFound(field string) FieldError {
	return FieldError{Field: field, Code: "reference_not_found",
		Message: field + " references a record that does not exist"}
}
