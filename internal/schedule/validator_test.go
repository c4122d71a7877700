package schedule_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ot-slot-booking/internal/schedule"
)

// fakeLookups is an in-memory Lookups implementation seeded with known IDs.
type fakeLookups struct {
	patients     map[uint64]bool
	theaters     map[uint64]bool
	staff        map[uint64]bool
	bills        map[uint64]bool
	appointments map[uint64]bool
	surgeryTypes map[uint64]bool
	slots        map[uint64]uint64 // slot ID -> parent theater ID
}

func newFakeLookups() *fakeLookups {
	return &fakeLookups{
		patients:     map[uint64]bool{1: true},
		theaters:     map[uint64]bool{10: true, 11: true},
		staff:        map[uint64]bool{100: true, 101: true},
		bills:        map[uint64]bool{200: true},
		appointments: map[uint64]bool{300: true},
		surgeryTypes: map[uint64]bool{400: true},
		slots:        map[uint64]uint64{5: 10, 6: 10, 7: 11},
	}
}

func (f *fakeLookups) PatientExists(_ context.Context, id uint64) (bool, error) {
	return f.patients[id], nil
}
func (f *fakeLookups) TheaterExists(_ context.Context, id uint64) (bool, error) {
	return f.theaters[id], nil
}
func (f *fakeLookups) StaffExists(_ context.Context, id uint64) (bool, error) {
	return f.staff[id], nil
}
func (f *fakeLookups) BillExists(_ context.Context, id uint64) (bool, error) {
	return f.bills[id], nil
}
func (f *fakeLookups) AppointmentExists(_ context.Context, id uint64) (bool, error) {
	return f.appointments[id], nil
}
func (f *fakeLookups) SurgeryTypeExists(_ context.Context, id uint64) (bool, error) {
	return f.surgeryTypes[id], nil
}
func (f *fakeLookups) SlotTheater(_ context.Context, id uint64) (uint64, bool, error) {
	theater, ok := f.slots[id]
	return theater, ok, nil
}

func str(s string) *string { return &s }

func codes(errs []schedule.FieldError) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field] = e.Code
	}
	return out
}

func TestValidate_CreateHappyPath(t *testing.T) {
	v := schedule.NewValidator(newFakeLookups())
	p := schedule.Payload{
		PatientID:      u64(1),
		TheaterID:      u64(10),
		LeadSurgeonID:  u64(100),
		AllocationDate: str("15-12-2025"),
		StartTime:      str("09:30"),
		Slots:          schedule.ExplicitSlots([]uint64{5, 6}),
	}
	errs, err := v.Validate(context.Background(), p, schedule.ModeCreate)
	require.NoError(t, err)
	require.Empty(t, errs)
}

func TestValidate_CreateMissingRequired(t *testing.T) {
	v := schedule.NewValidator(newFakeLookups())
	errs, err := v.Validate(context.Background(), schedule.Payload{}, schedule.ModeCreate)
	require.NoError(t, err)
	got := codes(errs)
	require.Equal(t, "required", got["PatientId"])
	require.Equal(t, "required", got["OTId"])
	require.Equal(t, "required", got["LeadSurgeonId"])
	require.Equal(t, "required", got["OTAllocationDate"])
}

func TestValidate_UpdateOnlyChecksSupplied(t *testing.T) {
	v := schedule.NewValidator(newFakeLookups())
	// Nothing supplied: an empty update is valid.
	errs, err := v.Validate(context.Background(), schedule.Payload{}, schedule.ModeUpdate)
	require.NoError(t, err)
	require.Empty(t, errs)

	// A supplied bad reference is still rejected.
	errs, err = v.Validate(context.Background(), schedule.Payload{NurseID: u64(999)}, schedule.ModeUpdate)
	require.NoError(t, err)
	require.Equal(t, "reference_not_found", codes(errs)["NurseId"])
}

func TestValidate_ReferenceNotFound(t *testing.T) {
	v := schedule.NewValidator(newFakeLookups())
	p := schedule.Payload{
		PatientID:      u64(999),
		TheaterID:      u64(10),
		LeadSurgeonID:  u64(100),
		AllocationDate: str("15-12-2025"),
		BillID:         u64(555),
	}
	errs, err := v.Validate(context.Background(), p, schedule.ModeCreate)
	require.NoError(t, err)
	got := codes(errs)
	require.Equal(t, "reference_not_found", got["PatientId"])
	require.Equal(t, "reference_not_found", got["BillId"])
}

func TestValidate_SlotTheaterMismatch(t *testing.T) {
	v := schedule.NewValidator(newFakeLookups())
	p := schedule.Payload{
		PatientID:      u64(1),
		TheaterID:      u64(10),
		LeadSurgeonID:  u64(100),
		AllocationDate: str("15-12-2025"),
		// Slot 7 belongs to theater 11, slot 999 does not exist.
		Slots: schedule.ExplicitSlots([]uint64{7, 999}),
	}
	errs, err := v.Validate(context.Background(), p, schedule.ModeCreate)
	require.NoError(t, err)
	require.Len(t, errs, 2)
	var mismatches, missing int
	for _, e := range errs {
		switch e.Code {
		case "slot_theater_mismatch":
			mismatches++
		case "reference_not_found":
			missing++
		}
	}
	require.Equal(t, 1, mismatches)
	require.Equal(t, 1, missing)
}

func TestValidate_UpdateUsesStoredTheaterForSlots(t *testing.T) {
	v := schedule.NewValidator(newFakeLookups())
	// No theater in the payload; slot 7 checked against the stored theater 11.
	p := schedule.Payload{
		Slots:            schedule.ExplicitSlots([]uint64{7}),
		CurrentTheaterID: 11,
	}
	errs, err := v.Validate(context.Background(), p, schedule.ModeUpdate)
	require.NoError(t, err)
	require.Empty(t, errs)

	// Same slot against stored theater 10 is a mismatch.
	p.CurrentTheaterID = 10
	errs, err = v.Validate(context.Background(), p, schedule.ModeUpdate)
	require.NoError(t, err)
	require.Equal(t, "slot_theater_mismatch", codes(errs)["OTSlotIds"])
}

func TestValidate_CreateTerminalStatusRejectsSlots(t *testing.T) {
	v := schedule.NewValidator(newFakeLookups())
	p := schedule.Payload{
		PatientID:      u64(1),
		TheaterID:      u64(10),
		LeadSurgeonID:  u64(100),
		AllocationDate: str("15-12-2025"),
		Status:         str("Cancelled"),
		Slots:          schedule.ExplicitSlots([]uint64{5}),
	}
	errs, err := v.Validate(context.Background(), p, schedule.ModeCreate)
	require.NoError(t, err)
	require.Equal(t, "invalid_value", codes(errs)["OTSlotIds"])

	// Without slots a terminal-state create is accepted.
	p.Slots = schedule.UnspecifiedSlots()
	errs, err = v.Validate(context.Background(), p, schedule.ModeCreate)
	require.NoError(t, err)
	require.Empty(t, errs)
}

func TestValidate_FormatErrors(t *testing.T) {
	v := schedule.NewValidator(newFakeLookups())
	p := schedule.Payload{
		PatientID:      u64(1),
		TheaterID:      u64(10),
		LeadSurgeonID:  u64(100),
		AllocationDate: str("2025/12/15"),
		EndTime:        str("25:00"),
		Status:         str("Finished"),
	}
	errs, err := v.Validate(context.Background(), p, schedule.ModeCreate)
	require.NoError(t, err)
	got := codes(errs)
	require.Equal(t, "bad_format", got["OTAllocationDate"])
	require.Equal(t, "bad_format", got["EndTime"])
	require.Equal(t, "invalid_value", got["OperationStatus"])
}
