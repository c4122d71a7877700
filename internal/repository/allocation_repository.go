package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/ot-slot-booking/internal/datefmt"
	"github.com/iliyamo/ot-slot-booking/internal/model"
)

// AllocationRepo provides CRUD operations for the ot_allocations header
// table.  Writes that must be atomic with slot-binding changes take an
// explicit transaction; the AllocationStore composes them.  Timestamps are
// stored in UTC.
type AllocationRepo struct {
	db *sql.DB
}

// NewAllocationRepo returns a new AllocationRepo bound to the given database.
func NewAllocationRepo(db *sql.DB) *AllocationRepo { return &AllocationRepo{db: db} }

// DB exposes the underlying handle so the store can open transactions.
func (r *AllocationRepo) DB() *sql.DB { return r.db }

// allocationColumns is the canonical column list shared by every query that
// scans a full header row.
const allocationColumns = `id, patient_id, theater_id, lead_surgeon_id, appointment_id,
	emergency_slot_id, surgery_type_id, assistant_id, anaesthetist_id, nurse_id,
	bill_id, created_by, alloc_date, start_time, end_time, actual_start,
	actual_end, duration_minutes, operation_details, pre_op_notes, post_op_notes,
	documents, status, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanAllocation reads one full header row in allocationColumns order.
func scanAllocation(sc rowScanner) (*model.Allocation, error) {
	var a model.Allocation
	var appointment, emergency, surgeryType, assistant, anaesthetist, nurse, bill, createdBy sql.NullInt64
	var start, end, actualStart, actualEnd sql.NullString
	var duration sql.NullInt64
	var details, preOp, postOp, docs sql.NullString
	err := sc.Scan(
		&a.ID, &a.PatientID, &a.TheaterID, &a.LeadSurgeonID, &appointment,
		&emergency, &surgeryType, &assistant, &anaesthetist, &nurse,
		&bill, &createdBy, &a.AllocDate, &start, &end, &actualStart,
		&actualEnd, &duration, &details, &preOp, &postOp,
		&docs, &a.Status, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.AppointmentID = nullID(appointment)
	a.EmergencySlotID = nullID(emergency)
	a.SurgeryTypeID = nullID(surgeryType)
	a.AssistantID = nullID(assistant)
	a.AnaesthetistID = nullID(anaesthetist)
	a.NurseID = nullID(nurse)
	a.BillID = nullID(bill)
	a.CreatedBy = nullID(createdBy)
	a.StartTime = nullStr(start)
	a.EndTime = nullStr(end)
	a.ActualStart = nullStr(actualStart)
	a.ActualEnd = nullStr(actualEnd)
	if duration.Valid {
		d := uint32(duration.Int64)
		a.DurationMinutes = &d
	}
	a.OperationDetails = nullStr(details)
	a.PreOpNotes = nullStr(preOp)
	a.PostOpNotes = nullStr(postOp)
	a.Documents = splitDocuments(docs)
	return &a, nil
}

func nullID(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	id := uint64(v.Int64)
	return &id
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// Document URLs are serialized into one TEXT column, newline separated.
func joinDocuments(docs []string) interface{} {
	if len(docs) == 0 {
		return nil
	}
	return strings.Join(docs, "\n")
}

func splitDocuments(v sql.NullString) []string {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return []string{}
	}
	parts := strings.Split(v.String, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CreateTx inserts a new allocation header within the scope of an existing
// transaction, then queries the row back so database defaults (status,
// soft-delete flag, timestamps) are populated on the returned record.  The
// caller must commit or roll back the transaction.
func (r *AllocationRepo) CreateTx(ctx context.Context, tx *sql.Tx, a *model.Allocation) error {
	const q = `INSERT INTO ot_allocations (patient_id, theater_id, lead_surgeon_id,
		appointment_id, emergency_slot_id, surgery_type_id, assistant_id,
		anaesthetist_id, nurse_id, bill_id, created_by, alloc_date, start_time,
		end_time, actual_start, actual_end, duration_minutes, operation_details,
		pre_op_notes, post_op_notes, documents, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	status := a.Status
	if status == "" {
		status = "Scheduled"
	}
	result, err := tx.ExecContext(ctx, q,
		a.PatientID, a.TheaterID, a.LeadSurgeonID,
		a.AppointmentID, a.EmergencySlotID, a.SurgeryTypeID, a.AssistantID,
		a.AnaesthetistID, a.NurseID, a.BillID, a.CreatedBy,
		a.AllocDate.Format(datefmt.StorageLayout), a.StartTime,
		a.EndTime, a.ActualStart, a.ActualEnd, a.DurationMinutes, a.OperationDetails,
		a.PreOpNotes, a.PostOpNotes, joinDocuments(a.Documents), status,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	// Query back the full row to populate defaults and timestamps.
	row := tx.QueryRowContext(ctx,
		`SELECT `+allocationColumns+` FROM ot_allocations WHERE id = ?`, a.ID)
	full, err := scanAllocation(row)
	if err != nil {
		return err
	}
	*a = *full
	return nil
}

// GetRecordTx loads a header row inside a transaction, locking it so
// concurrent updates to the same allocation serialize.  sql.ErrNoRows is
// returned when the allocation does not exist.
func (r *AllocationRepo) GetRecordTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Allocation, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+allocationColumns+` FROM ot_allocations WHERE id = ? FOR UPDATE`, id)
	return scanAllocation(row)
}

// GetRecord loads a header row outside any transaction.
func (r *AllocationRepo) GetRecord(ctx context.Context, id uint64) (*model.Allocation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+allocationColumns+` FROM ot_allocations WHERE id = ?`, id)
	return scanAllocation(row)
}

// UpdateTx writes every mutable column of the header row.  The record must
// already hold the merged state; the store applies partial updates before
// calling this.
func (r *AllocationRepo) UpdateTx(ctx context.Context, tx *sql.Tx, a *model.Allocation) error {
	const q = `UPDATE ot_allocations SET patient_id = ?, theater_id = ?,
		lead_surgeon_id = ?, appointment_id = ?, emergency_slot_id = ?,
		surgery_type_id = ?, assistant_id = ?, anaesthetist_id = ?, nurse_id = ?,
		bill_id = ?, alloc_date = ?, start_time = ?, end_time = ?,
		actual_start = ?, actual_end = ?, duration_minutes = ?,
		operation_details = ?, pre_op_notes = ?, post_op_notes = ?,
		documents = ?, status = ?, is_active = ?
		WHERE id = ?`
	_, err := tx.ExecContext(ctx, q,
		a.PatientID, a.TheaterID,
		a.LeadSurgeonID, a.AppointmentID, a.EmergencySlotID,
		a.SurgeryTypeID, a.AssistantID, a.AnaesthetistID, a.NurseID,
		a.BillID, a.AllocDate.Format(datefmt.StorageLayout), a.StartTime, a.EndTime,
		a.ActualStart, a.ActualEnd, a.DurationMinutes,
		a.OperationDetails, a.PreOpNotes, a.PostOpNotes,
		joinDocuments(a.Documents), a.Status, a.IsActive,
		a.ID,
	)
	return err
}

// DeleteTx removes a header row.  Binding rows are removed explicitly by the
// store before this runs; the FK cascade is only a backstop.
func (r *AllocationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM ot_allocations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountsByDate returns the number of active allocations per status on one
// date.  Statuses with no allocations are absent from the map; handlers
// zero-fill for display.
func (r *AllocationRepo) CountsByDate(ctx context.Context, date time.Time) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM ot_allocations
		 WHERE alloc_date = ? AND is_active = 'Active'
		 GROUP BY status`,
		date.Format(datefmt.StorageLayout),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
