package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ot-slot-booking/internal/model"
	"github.com/iliyamo/ot-slot-booking/internal/schedule"
)

func setupMockStore(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *AllocationStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store := NewAllocationStore(db, NewAllocationRepo(db), NewSlotBindingRepo(db))
	return db, mock, store
}

var allocationCols = []string{
	"id", "patient_id", "theater_id", "lead_surgeon_id", "appointment_id",
	"emergency_slot_id", "surgery_type_id", "assistant_id", "anaesthetist_id", "nurse_id",
	"bill_id", "created_by", "alloc_date", "start_time", "end_time", "actual_start",
	"actual_end", "duration_minutes", "operation_details", "pre_op_notes", "post_op_notes",
	"documents", "status", "is_active", "created_at", "updated_at",
}

// allocationRow builds a full header row with the given identity fields and
// NULLs everywhere optional.
func allocationRow(id uint64, date time.Time, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(allocationCols).AddRow(
		id, 1, 10, 100, nil,
		nil, nil, nil, nil, nil,
		nil, nil, date, nil, nil, nil,
		nil, nil, nil, nil, nil,
		nil, status, "Active", now, now,
	)
}

func TestCreate_BindsSlotsAtomically(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ot_allocations`).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(`SELECT .+ FROM ot_allocations WHERE id = \?`).
		WithArgs(uint64(7)).
		WillReturnRows(allocationRow(7, date, "Scheduled"))
	mock.ExpectExec(`INSERT INTO ot_slot_bindings`).
		WithArgs(uint64(7), uint64(5), "2026-03-01", uint64(7), uint64(6), "2026-03-01").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	rec := &model.Allocation{PatientID: 1, TheaterID: 10, LeadSurgeonID: 100, AllocDate: date}
	created, cs, err := store.Create(context.Background(), rec, schedule.ExplicitSlots([]uint64{5, 6}))

	require.NoError(t, err)
	assert.Equal(t, uint64(7), created.ID)
	assert.Equal(t, "Scheduled", created.Status)
	assert.Equal(t, []uint64{5, 6}, cs.Added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_SlotTaken_RollsBackHeader(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ot_allocations`).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(`SELECT .+ FROM ot_allocations WHERE id = \?`).
		WithArgs(uint64(7)).
		WillReturnRows(allocationRow(7, date, "Scheduled"))
	mock.ExpectExec(`INSERT INTO ot_slot_bindings`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	rec := &model.Allocation{PatientID: 1, TheaterID: 10, LeadSurgeonID: 100, AllocDate: date}
	_, _, err := store.Create(context.Background(), rec, schedule.ExplicitSlots([]uint64{5}))

	require.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_HeaderFailure_SkipsBindings(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ot_allocations`).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "foreign key constraint fails"})
	mock.ExpectRollback()

	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rec := &model.Allocation{PatientID: 1, TheaterID: 10, LeadSurgeonID: 100, AllocDate: date}
	_, _, err := store.Create(context.Background(), rec, schedule.ExplicitSlots([]uint64{5}))

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSlotTaken)
	// No binding insert was expected; the mock fails the test if one ran.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_NoSlots_InsertsHeaderOnly(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ot_allocations`).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectQuery(`SELECT .+ FROM ot_allocations WHERE id = \?`).
		WithArgs(uint64(8)).
		WillReturnRows(allocationRow(8, date, "Scheduled"))
	mock.ExpectCommit()

	rec := &model.Allocation{PatientID: 1, TheaterID: 10, LeadSurgeonID: 100, AllocDate: date}
	_, cs, err := store.Create(context.Background(), rec, schedule.UnspecifiedSlots())

	require.NoError(t, err)
	assert.Empty(t, cs.Added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_RemovesDroppedSlot(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM ot_allocations WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(7)).
		WillReturnRows(allocationRow(7, date, "Scheduled"))
	mock.ExpectQuery(`SELECT slot_id FROM ot_slot_bindings`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"slot_id"}).AddRow(5).AddRow(6))
	mock.ExpectExec(`UPDATE ot_allocations SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM ot_slot_bindings WHERE allocation_id = \? AND slot_id IN`).
		WithArgs(uint64(7), uint64(6)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	patch := AllocationPatch{Slots: schedule.ExplicitSlots([]uint64{5})}
	_, cs, err := store.Update(context.Background(), 7, patch)

	require.NoError(t, err)
	assert.Empty(t, cs.Added)
	assert.Equal(t, []uint64{6}, cs.Removed)
	assert.False(t, cs.ForcedRelease)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_CancelReleasesEverySlot(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cancelled := "Cancelled"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM ot_allocations WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(7)).
		WillReturnRows(allocationRow(7, date, "Scheduled"))
	mock.ExpectQuery(`SELECT slot_id FROM ot_slot_bindings`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"slot_id"}).AddRow(5).AddRow(6))
	mock.ExpectExec(`UPDATE ot_allocations SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM ot_slot_bindings WHERE allocation_id = \? AND slot_id IN`).
		WithArgs(uint64(7), uint64(5), uint64(6)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	// The request only flips the status; the release is forced by the
	// lifecycle rule, not by an explicit slot list.
	patch := AllocationPatch{Status: &cancelled}
	rec, cs, err := store.Update(context.Background(), 7, patch)

	require.NoError(t, err)
	assert.Equal(t, "Cancelled", rec.Status)
	assert.Equal(t, []uint64{5, 6}, cs.Removed)
	assert.True(t, cs.ForcedRelease)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_TerminalAllocationCannotRebindSlots(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM ot_allocations WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(7)).
		WillReturnRows(allocationRow(7, date, "Cancelled"))
	mock.ExpectQuery(`SELECT slot_id FROM ot_slot_bindings`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"slot_id"}))
	mock.ExpectExec(`UPDATE ot_allocations SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// The request tries to attach a slot to a cancelled allocation; no
	// binding insert may run.  The mock fails the test if one does.
	patch := AllocationPatch{Slots: schedule.ExplicitSlots([]uint64{5})}
	_, cs, err := store.Update(context.Background(), 7, patch)

	require.NoError(t, err)
	assert.Empty(t, cs.Added)
	assert.Empty(t, cs.Removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_TerminalStatusSkipsBindings(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ot_allocations`).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectQuery(`SELECT .+ FROM ot_allocations WHERE id = \?`).
		WithArgs(uint64(9)).
		WillReturnRows(allocationRow(9, date, "Cancelled"))
	mock.ExpectCommit()

	rec := &model.Allocation{PatientID: 1, TheaterID: 10, LeadSurgeonID: 100, AllocDate: date, Status: "Cancelled"}
	_, cs, err := store.Create(context.Background(), rec, schedule.ExplicitSlots([]uint64{5}))

	require.NoError(t, err)
	assert.Empty(t, cs.Added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_DateChangeRedatesRetainedBindings(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	oldDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	newDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM ot_allocations WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(7)).
		WillReturnRows(allocationRow(7, oldDate, "Scheduled"))
	mock.ExpectQuery(`SELECT slot_id FROM ot_slot_bindings`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"slot_id"}).AddRow(5))
	mock.ExpectExec(`UPDATE ot_allocations SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE ot_slot_bindings SET alloc_date = \?`).
		WithArgs("2026-03-02", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	patch := AllocationPatch{AllocDate: &newDate}
	_, cs, err := store.Update(context.Background(), 7, patch)

	require.NoError(t, err)
	assert.Empty(t, cs.Added)
	assert.Empty(t, cs.Removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_RedateConflict_SurfacesSlotTaken(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	oldDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	newDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM ot_allocations WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(7)).
		WillReturnRows(allocationRow(7, oldDate, "Scheduled"))
	mock.ExpectQuery(`SELECT slot_id FROM ot_slot_bindings`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"slot_id"}).AddRow(5))
	mock.ExpectExec(`UPDATE ot_allocations SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE ot_slot_bindings SET alloc_date = \?`).
		WithArgs("2026-03-02", uint64(7)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	patch := AllocationPatch{AllocDate: &newDate}
	_, _, err := store.Update(context.Background(), 7, patch)

	require.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NotFound(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM ot_allocations WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := store.Update(context.Background(), 99, AllocationPatch{})

	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_ReleasesBindingsWithHeader(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT slot_id FROM ot_slot_bindings`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"slot_id"}).AddRow(5).AddRow(6))
	mock.ExpectExec(`DELETE FROM ot_slot_bindings WHERE allocation_id = \?`).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM ot_allocations WHERE id = \?`).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	released, err := store.Delete(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 6}, released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_NotFound(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT slot_id FROM ot_slot_bindings`).
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"slot_id"}))
	mock.ExpectExec(`DELETE FROM ot_allocations WHERE id = \?`).
		WithArgs(uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := store.Delete(context.Background(), 99)

	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
