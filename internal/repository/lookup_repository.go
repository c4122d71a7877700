package repository

import (
	"context"
	"database/sql"
	"errors"
)

// LookupRepo provides the typed existence checks the validator runs against
// collaborator tables (patient registry, theater catalog, staff directory,
// billing, appointments, surgery types).  All of these tables are owned by
// other subsystems; this repository never writes to them.  It implements
// schedule.Lookups.
type LookupRepo struct {
	db *sql.DB
}

// NewLookupRepo returns a LookupRepo bound to the given database.
func NewLookupRepo(db *sql.DB) *LookupRepo { return &LookupRepo{db: db} }

// exists runs a single-row existence query.  The query must select a
// constant for one id parameter.
func (r *LookupRepo) exists(ctx context.Context, query string, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PatientExists reports whether a patient record exists.
func (r *LookupRepo) PatientExists(ctx context.Context, id uint64) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM patients WHERE id = ?`, id)
}

// TheaterExists reports whether an operating theater exists.
func (r *LookupRepo) TheaterExists(ctx context.Context, id uint64) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM ot_theaters WHERE id = ?`, id)
}

// StaffExists reports whether a staff member exists.  Surgeons, assistants,
// anaesthetists, nurses and record creators all resolve against the same
// directory.
func (r *LookupRepo) StaffExists(ctx context.Context, id uint64) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM staff WHERE id = ?`, id)
}

// BillExists reports whether a bill exists.
func (r *LookupRepo) BillExists(ctx context.Context, id uint64) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM bills WHERE id = ?`, id)
}

// AppointmentExists reports whether an appointment exists.
func (r *LookupRepo) AppointmentExists(ctx context.Context, id uint64) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM appointments WHERE id = ?`, id)
}

// SurgeryTypeExists reports whether a surgery-type catalog entry exists.
func (r *LookupRepo) SurgeryTypeExists(ctx context.Context, id uint64) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM surgery_types WHERE id = ?`, id)
}

// SlotTheater returns the parent theater of a slot.  ok is false when no
// slot with the given ID exists.
func (r *LookupRepo) SlotTheater(ctx context.Context, id uint64) (uint64, bool, error) {
	var theaterID uint64
	err := r.db.QueryRowContext(ctx, `SELECT theater_id FROM ot_slots WHERE id = ?`, id).Scan(&theaterID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return theaterID, true, nil
}
