package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/ot-slot-booking/internal/datefmt"
)

// SlotBindingRepo manages the ot_slot_bindings junction table: the rows that
// attach an allocation to the theater slots it holds on a given date.  All
// write methods run inside a caller-supplied transaction so binding changes
// commit or roll back together with the allocation header.
//
// The table carries UNIQUE KEY uq_slot_date (slot_id, alloc_date).  Since
// bindings of cancelled or postponed allocations are always deleted, every
// existing row is an active hold, and a duplicate-key failure on an insert
// or re-date means another allocation already holds the slot on that date.
// Those failures are surfaced as ErrSlotTaken.
type SlotBindingRepo struct {
	db *sql.DB
}

// NewSlotBindingRepo returns a SlotBindingRepo bound to the given database.
func NewSlotBindingRepo(db *sql.DB) *SlotBindingRepo { return &SlotBindingRepo{db: db} }

// mysqlDuplicateEntry is the server error number for a unique-key violation.
const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// SlotIDsTx returns the slot IDs currently bound to an allocation, ordered
// for deterministic diffing.  An allocation with no bindings yields an empty
// slice.
func (r *SlotBindingRepo) SlotIDsTx(ctx context.Context, tx *sql.Tx, allocationID uint64) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT slot_id FROM ot_slot_bindings WHERE allocation_id = ? ORDER BY slot_id`,
		allocationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// InsertTx inserts one binding row per slot ID, all carrying the allocation
// date.  A duplicate-key failure on uq_slot_date means the slot is already
// held by another allocation on that date and is returned as ErrSlotTaken;
// the caller's transaction must then roll back.  Passing an empty slice has
// no effect and returns nil.
func (r *SlotBindingRepo) InsertTx(ctx context.Context, tx *sql.Tx, allocationID uint64, date time.Time, slotIDs []uint64) error {
	if len(slotIDs) == 0 {
		return nil
	}
	query := `INSERT INTO ot_slot_bindings (allocation_id, slot_id, alloc_date) VALUES `
	args := make([]interface{}, 0, len(slotIDs)*3)
	for i, id := range slotIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, allocationID, id, date.Format(datefmt.StorageLayout))
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateKey(err) {
			return ErrSlotTaken
		}
		return err
	}
	return nil
}

// DeleteTx removes the given slot bindings from an allocation.  Slot IDs not
// bound to the allocation are ignored.  Passing an empty slice is a no-op.
func (r *SlotBindingRepo) DeleteTx(ctx context.Context, tx *sql.Tx, allocationID uint64, slotIDs []uint64) error {
	if len(slotIDs) == 0 {
		return nil
	}
	placeholders := make([]string, len(slotIDs))
	args := make([]interface{}, 0, len(slotIDs)+1)
	args = append(args, allocationID)
	for i, id := range slotIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := `DELETE FROM ot_slot_bindings WHERE allocation_id = ? AND slot_id IN (` +
		strings.Join(placeholders, ",") + `)`
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// DeleteAllTx removes every binding of an allocation and returns the slot
// IDs that were released, so callers can report exactly what was freed.
// Releasing an allocation that has no bindings is a no-op and returns an
// empty slice.
func (r *SlotBindingRepo) DeleteAllTx(ctx context.Context, tx *sql.Tx, allocationID uint64) ([]uint64, error) {
	ids, err := r.SlotIDsTx(ctx, tx, allocationID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ids, nil
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ot_slot_bindings WHERE allocation_id = ?`, allocationID,
	); err != nil {
		return nil, err
	}
	return ids, nil
}

// RedateTx moves every remaining binding of an allocation to a new date,
// keeping the bindings' date copies in sync when the allocation date
// changes.  A duplicate-key failure means a slot is already held by another
// allocation on the target date and is returned as ErrSlotTaken.
func (r *SlotBindingRepo) RedateTx(ctx context.Context, tx *sql.Tx, allocationID uint64, date time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE ot_slot_bindings SET alloc_date = ? WHERE allocation_id = ?`,
		date.Format(datefmt.StorageLayout), allocationID,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrSlotTaken
		}
		return err
	}
	return nil
}
