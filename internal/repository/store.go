package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/ot-slot-booking/internal/database"
	"github.com/iliyamo/ot-slot-booking/internal/model"
	"github.com/iliyamo/ot-slot-booking/internal/schedule"
)

// AllocationStore performs the transactional writes of the allocation
// engine: the header row and the slot-binding reconciliation always commit
// or roll back as one unit, so no reader ever observes a header without its
// bindings or vice versa.  Validation happens before the store is called;
// the store only enforces the storage-level invariants (existence, slot
// exclusivity via uq_slot_date).
type AllocationStore struct {
	db       *sql.DB
	alloc    *AllocationRepo
	bindings *SlotBindingRepo
}

// NewAllocationStore constructs a store over the two repositories.  All
// dependencies must be non-nil.
func NewAllocationStore(db *sql.DB, alloc *AllocationRepo, bindings *SlotBindingRepo) *AllocationStore {
	if db == nil || alloc == nil || bindings == nil {
		panic("nil dependency passed to NewAllocationStore")
	}
	return &AllocationStore{db: db, alloc: alloc, bindings: bindings}
}

// ChangeSet reports what a write did to an allocation's slot bindings.  It
// feeds the audit event published after commit and is never persisted.
type ChangeSet struct {
	Added         []uint64
	Removed       []uint64
	ForcedRelease bool
}

// AllocationPatch carries a partial update.  Nil pointers mean "leave the
// stored value unchanged"; a non-nil pointer applies the value, so clearing
// a field and omitting it are distinct requests.  Slots follows the same
// convention through SlotSelection.Specified.
type AllocationPatch struct {
	PatientID        *uint64
	TheaterID        *uint64
	LeadSurgeonID    *uint64
	AppointmentID    *uint64
	EmergencySlotID  *uint64
	SurgeryTypeID    *uint64
	AssistantID      *uint64
	AnaesthetistID   *uint64
	NurseID          *uint64
	BillID           *uint64
	AllocDate        *time.Time
	StartTime        *string
	EndTime          *string
	ActualStart      *string
	ActualEnd        *string
	DurationMinutes  *uint32
	OperationDetails *string
	PreOpNotes       *string
	PostOpNotes      *string
	Documents        *[]string
	Status           *string
	IsActive         *string
	Slots            schedule.SlotSelection
}

// Create inserts a new allocation and binds the requested slots, atomically.
// The returned record carries the generated ID and database defaults.  A
// slot held by another allocation on the same date fails the whole
// transaction with ErrSlotTaken.
func (s *AllocationStore) Create(ctx context.Context, a *model.Allocation, slots schedule.SlotSelection) (*model.Allocation, ChangeSet, error) {
	var cs ChangeSet
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.alloc.CreateTx(ctx, tx, a); err != nil {
			return err
		}
		// An allocation born Cancelled or Postponed holds no slots; the
		// binding table must only ever contain active holds.
		st, _ := schedule.ParseStatus(a.Status)
		if slots.Specified && len(slots.IDs) > 0 && !st.ReleasesSlots() {
			if err := s.bindings.InsertTx(ctx, tx, a.ID, a.AllocDate, slots.IDs); err != nil {
				return err
			}
			cs.Added = slots.IDs
		}
		return nil
	})
	if err != nil {
		return nil, ChangeSet{}, err
	}
	return a, cs, nil
}

// Update applies a partial update to an allocation and reconciles its slot
// bindings, atomically.  The lifecycle rule runs inside the transaction
// against the stored status: moving into Cancelled or Postponed releases
// every binding regardless of the patch's slot selection.  When the
// selection is unspecified and no release is forced, bindings stay
// untouched apart from a re-date when the allocation date changed.
// sql.ErrNoRows is returned when the allocation does not exist.
func (s *AllocationStore) Update(ctx context.Context, id uint64, patch AllocationPatch) (*model.Allocation, ChangeSet, error) {
	var rec *model.Allocation
	var cs ChangeSet
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		stored, err := s.alloc.GetRecordTx(ctx, tx, id)
		if err != nil {
			return err
		}
		current, err := s.bindings.SlotIDsTx(ctx, tx, id)
		if err != nil {
			return err
		}

		var requested *schedule.Status
		if patch.Status != nil {
			st, ok := schedule.ParseStatus(*patch.Status)
			if !ok {
				return ErrConflict
			}
			requested = &st
		}
		plan := schedule.PlanTransition(schedule.Status(stored.Status), requested, patch.Slots, current)

		dateChanged := applyPatch(stored, patch)
		if err := s.alloc.UpdateTx(ctx, tx, stored); err != nil {
			return err
		}

		if plan.Effective.Specified {
			added, removed := schedule.Diff(current, plan.Effective.IDs)
			if err := s.bindings.DeleteTx(ctx, tx, id, removed); err != nil {
				return err
			}
			if dateChanged && len(current) > len(removed) {
				// Retained bindings must follow the allocation to its new date.
				if err := s.bindings.RedateTx(ctx, tx, id, stored.AllocDate); err != nil {
					return err
				}
			}
			if err := s.bindings.InsertTx(ctx, tx, id, stored.AllocDate, added); err != nil {
				return err
			}
			cs = ChangeSet{Added: added, Removed: removed, ForcedRelease: plan.ForcedRelease}
		} else if dateChanged && len(current) > 0 {
			if err := s.bindings.RedateTx(ctx, tx, id, stored.AllocDate); err != nil {
				return err
			}
		}
		rec = stored
		return nil
	})
	if err != nil {
		return nil, ChangeSet{}, err
	}
	return rec, cs, nil
}

// Delete removes an allocation and all of its bindings as one atomic unit.
// It returns the released slot IDs for audit purposes and sql.ErrNoRows when
// the allocation does not exist.
func (s *AllocationStore) Delete(ctx context.Context, id uint64) ([]uint64, error) {
	var released []uint64
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		ids, err := s.bindings.DeleteAllTx(ctx, tx, id)
		if err != nil {
			return err
		}
		released = ids
		return s.alloc.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// applyPatch merges non-nil patch fields into the stored record and reports
// whether the allocation date changed.
func applyPatch(a *model.Allocation, p AllocationPatch) (dateChanged bool) {
	if p.PatientID != nil {
		a.PatientID = *p.PatientID
	}
	if p.TheaterID != nil {
		a.TheaterID = *p.TheaterID
	}
	if p.LeadSurgeonID != nil {
		a.LeadSurgeonID = *p.LeadSurgeonID
	}
	if p.AppointmentID != nil {
		a.AppointmentID = p.AppointmentID
	}
	if p.EmergencySlotID != nil {
		a.EmergencySlotID = p.EmergencySlotID
	}
	if p.SurgeryTypeID != nil {
		a.SurgeryTypeID = p.SurgeryTypeID
	}
	if p.AssistantID != nil {
		a.AssistantID = p.AssistantID
	}
	if p.AnaesthetistID != nil {
		a.AnaesthetistID = p.AnaesthetistID
	}
	if p.NurseID != nil {
		a.NurseID = p.NurseID
	}
	if p.BillID != nil {
		a.BillID = p.BillID
	}
	if p.AllocDate != nil && !p.AllocDate.Equal(a.AllocDate) {
		a.AllocDate = *p.AllocDate
		dateChanged = true
	}
	if p.StartTime != nil {
		a.StartTime = p.StartTime
	}
	if p.EndTime != nil {
		a.EndTime = p.EndTime
	}
	if p.ActualStart != nil {
		a.ActualStart = p.ActualStart
	}
	if p.ActualEnd != nil {
		a.ActualEnd = p.ActualEnd
	}
	if p.DurationMinutes != nil {
		a.DurationMinutes = p.DurationMinutes
	}
	if p.OperationDetails != nil {
		a.OperationDetails = p.OperationDetails
	}
	if p.PreOpNotes != nil {
		a.PreOpNotes = p.PreOpNotes
	}
	if p.PostOpNotes != nil {
		a.PostOpNotes = p.PostOpNotes
	}
	if p.Documents != nil {
		a.Documents = *p.Documents
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.IsActive != nil {
		a.IsActive = *p.IsActive
	}
	return dateChanged
}
