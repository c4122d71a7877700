package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/ot-slot-booking/internal/datefmt"
)

// AllocationView is an allocation enriched with denormalized display fields
// from the collaborator tables and its full resolved slot list.  It is what
// read endpoints return; the write path never touches it.
type AllocationView struct {
	ID               uint64          `json:"id"`
	PatientID        uint64          `json:"patient_id"`
	PatientName      string          `json:"patient_name"`
	TheaterID        uint64          `json:"ot_id"`
	TheaterNumber    string          `json:"theater_number"`
	LeadSurgeonID    uint64          `json:"lead_surgeon_id"`
	LeadSurgeonName  string          `json:"lead_surgeon_name"`
	AssistantName    *string         `json:"assistant_name,omitempty"`
	AnaesthetistName *string         `json:"anaesthetist_name,omitempty"`
	NurseName        *string         `json:"nurse_name,omitempty"`
	SurgeryTypeName  *string         `json:"surgery_type,omitempty"`
	BillNumber       *string         `json:"bill_number,omitempty"`
	CreatorName      *string         `json:"created_by_name,omitempty"`
	AllocationDate   string          `json:"ot_allocation_date"`
	StartTime        *string         `json:"start_time,omitempty"`
	EndTime          *string         `json:"end_time,omitempty"`
	ActualStart      *string         `json:"actual_start,omitempty"`
	ActualEnd        *string         `json:"actual_end,omitempty"`
	DurationMinutes  *uint32         `json:"duration_minutes,omitempty"`
	OperationDetails *string         `json:"operation_details,omitempty"`
	PreOpNotes       *string         `json:"pre_op_notes,omitempty"`
	PostOpNotes      *string         `json:"post_op_notes,omitempty"`
	Documents        []string        `json:"documents"`
	Status           string          `json:"status"`
	Slots            []BoundSlotView `json:"slots"`
}

// BoundSlotView is one resolved slot binding: the slot's catalog data plus
// the date it is bound for.
type BoundSlotView struct {
	SlotID     uint64 `json:"slot_id"`
	SlotNumber uint32 `json:"slot_number"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Status     string `json:"status"`
	BoundDate  string `json:"date"`
}

// viewColumns selects the header fields plus the joined display names.  The
// alias order must match scanView.
const viewColumns = `a.id, a.patient_id, p.full_name, a.theater_id, t.theater_number,
	a.lead_surgeon_id, surg.full_name, asst.full_name, anae.full_name,
	nurse.full_name, st.name, b.bill_number, creator.full_name,
	a.alloc_date, a.start_time, a.end_time, a.actual_start, a.actual_end,
	a.duration_minutes, a.operation_details, a.pre_op_notes, a.post_op_notes,
	a.documents, a.status`

const viewJoins = `FROM ot_allocations a
	JOIN patients p        ON p.id = a.patient_id
	JOIN ot_theaters t     ON t.id = a.theater_id
	JOIN staff surg        ON surg.id = a.lead_surgeon_id
	LEFT JOIN staff asst    ON asst.id = a.assistant_id
	LEFT JOIN staff anae    ON anae.id = a.anaesthetist_id
	LEFT JOIN staff nurse   ON nurse.id = a.nurse_id
	LEFT JOIN surgery_types st ON st.id = a.surgery_type_id
	LEFT JOIN bills b       ON b.id = a.bill_id
	LEFT JOIN staff creator ON creator.id = a.created_by`

func scanView(sc rowScanner) (*AllocationView, error) {
	var v AllocationView
	var assistant, anaesthetist, nurse, surgeryType, billNumber, creator sql.NullString
	var allocDate time.Time
	var start, end, actualStart, actualEnd sql.NullString
	var duration sql.NullInt64
	var details, preOp, postOp, docs sql.NullString
	err := sc.Scan(
		&v.ID, &v.PatientID, &v.PatientName, &v.TheaterID, &v.TheaterNumber,
		&v.LeadSurgeonID, &v.LeadSurgeonName, &assistant, &anaesthetist,
		&nurse, &surgeryType, &billNumber, &creator,
		&allocDate, &start, &end, &actualStart, &actualEnd,
		&duration, &details, &preOp, &postOp,
		&docs, &v.Status,
	)
	if err != nil {
		return nil, err
	}
	v.AssistantName = nullStr(assistant)
	v.AnaesthetistName = nullStr(anaesthetist)
	v.NurseName = nullStr(nurse)
	v.SurgeryTypeName = nullStr(surgeryType)
	v.BillNumber = nullStr(billNumber)
	v.CreatorName = nullStr(creator)
	v.AllocationDate = datefmt.ToDisplay(allocDate)
	v.StartTime = nullStr(start)
	v.EndTime = nullStr(end)
	v.ActualStart = nullStr(actualStart)
	v.ActualEnd = nullStr(actualEnd)
	if duration.Valid {
		d := uint32(duration.Int64)
		v.DurationMinutes = &d
	}
	v.OperationDetails = nullStr(details)
	v.PreOpNotes = nullStr(preOp)
	v.PostOpNotes = nullStr(postOp)
	v.Documents = splitDocuments(docs)
	v.Slots = []BoundSlotView{}
	return &v, nil
}

// GetView returns a single allocation enriched with display names and its
// resolved slot list.  sql.ErrNoRows is returned when the allocation does
// not exist.
func (r *AllocationRepo) GetView(ctx context.Context, id uint64) (*AllocationView, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+viewColumns+` `+viewJoins+` WHERE a.id = ?`, id)
	v, err := scanView(row)
	if err != nil {
		return nil, err
	}
	const slotQ = `SELECT sb.slot_id, s.slot_number, s.start_time, s.end_time, s.status, sb.alloc_date
		FROM ot_slot_bindings sb
		JOIN ot_slots s ON s.id = sb.slot_id
		WHERE sb.allocation_id = ?
		ORDER BY s.slot_number`
	rows, err := r.db.QueryContext(ctx, slotQ, v.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		slot, err := scanBoundSlot(rows)
		if err != nil {
			return nil, err
		}
		v.Slots = append(v.Slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return v, nil
}

func scanBoundSlot(sc rowScanner) (BoundSlotView, error) {
	var s BoundSlotView
	var boundDate time.Time
	if err := sc.Scan(&s.SlotID, &s.SlotNumber, &s.StartTime, &s.EndTime, &s.Status, &boundDate); err != nil {
		return BoundSlotView{}, err
	}
	s.BoundDate = datefmt.ToDisplay(boundDate)
	return s, nil
}

// Filter narrows the allocation list.  Zero values mean "no constraint";
// the storage layer translates set fields into one parameterized query and
// never concatenates client input into SQL.
type Filter struct {
	Status        string
	PatientID     uint64
	TheaterID     uint64
	SurgeryTypeID uint64
	LeadSurgeonID uint64
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
}

// List returns active allocations matching the filter, newest date first,
// each enriched with display names and its resolved slot list, along with
// the total match count for pagination.
func (r *AllocationRepo) List(ctx context.Context, f Filter) ([]AllocationView, int64, error) {
	where := []string{"a.is_active = 'Active'"}
	args := []interface{}{}

	if f.Status != "" {
		where = append(where, "a.status = ?")
		args = append(args, f.Status)
	}
	if f.PatientID != 0 {
		where = append(where, "a.patient_id = ?")
		args = append(args, f.PatientID)
	}
	if f.TheaterID != 0 {
		where = append(where, "a.theater_id = ?")
		args = append(args, f.TheaterID)
	}
	if f.SurgeryTypeID != 0 {
		where = append(where, "a.surgery_type_id = ?")
		args = append(args, f.SurgeryTypeID)
	}
	if f.LeadSurgeonID != 0 {
		where = append(where, "a.lead_surgeon_id = ?")
		args = append(args, f.LeadSurgeonID)
	}
	if f.From != nil {
		where = append(where, "a.alloc_date >= ?")
		args = append(args, f.From.Format(datefmt.StorageLayout))
	}
	if f.To != nil {
		where = append(where, "a.alloc_date <= ?")
		args = append(args, f.To.Format(datefmt.StorageLayout))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*) ` + viewJoins + ` WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size < 1 || size > 200 {
		size = 50
	}

	dataSQL := `SELECT ` + viewColumns + ` ` + viewJoins + ` WHERE ` + cond + `
		ORDER BY a.alloc_date DESC, a.id DESC
		LIMIT ? OFFSET ?`
	argsData := append(append([]interface{}{}, args...), size, (page-1)*size)
	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	views := make([]AllocationView, 0, size)
	index := make(map[uint64]int)
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, 0, err
		}
		index[v.ID] = len(views)
		views = append(views, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(views) == 0 {
		return views, total, nil
	}

	// Populate slots for the whole page in a single query.
	ids := make([]interface{}, 0, len(views))
	placeholders := make([]string, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
		placeholders = append(placeholders, "?")
	}
	slotSQL := `SELECT sb.allocation_id, sb.slot_id, s.slot_number, s.start_time, s.end_time, s.status, sb.alloc_date
		FROM ot_slot_bindings sb
		JOIN ot_slots s ON s.id = sb.slot_id
		WHERE sb.allocation_id IN (` + strings.Join(placeholders, ",") + `)
		ORDER BY sb.allocation_id, s.slot_number`
	srows, err := r.db.QueryContext(ctx, slotSQL, ids...)
	if err != nil {
		return nil, 0, err
	}
	defer srows.Close()
	for srows.Next() {
		var allocationID uint64
		var s BoundSlotView
		var boundDate time.Time
		if err := srows.Scan(&allocationID, &s.SlotID, &s.SlotNumber, &s.StartTime, &s.EndTime, &s.Status, &boundDate); err != nil {
			return nil, 0, err
		}
		s.BoundDate = datefmt.ToDisplay(boundDate)
		if idx, ok := index[allocationID]; ok {
			views[idx].Slots = append(views[idx].Slots, s)
		}
	}
	if err := srows.Err(); err != nil {
		return nil, 0, err
	}
	return views, total, nil
}
