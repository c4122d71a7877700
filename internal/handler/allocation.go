package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ot-slot-booking/internal/datefmt"
	"github.com/iliyamo/ot-slot-booking/internal/model"
	"github.com/iliyamo/ot-slot-booking/internal/queue"
	"github.com/iliyamo/ot-slot-booking/internal/repository"
	"github.com/iliyamo/ot-slot-booking/internal/schedule"
	queue_publisher "github.com/iliyamo/ot-slot-booking/internal/service"
)

// AllocationHandler exposes the OT allocation endpoints.  All methods assume
// that JWT authentication and role validation have already been performed by
// middleware.  Validation and reference checks run before any transaction
// opens; the store guarantees that header and binding writes are atomic.
type AllocationHandler struct {
	Store     *repository.AllocationStore
	AllocRepo *repository.AllocationRepo
	Validator *schedule.Validator
}

// NewAllocationHandler constructs an AllocationHandler.  All dependencies
// must be non-nil.
func NewAllocationHandler(store *repository.AllocationStore, allocRepo *repository.AllocationRepo, validator *schedule.Validator) *AllocationHandler {
	if store == nil || allocRepo == nil || validator == nil {
		panic("nil dependency passed to NewAllocationHandler")
	}
	return &AllocationHandler{Store: store, AllocRepo: allocRepo, Validator: validator}
}

// allocationRequest is the JSON body of create and update requests.  Every
// field is a pointer so that an omitted field is distinguishable from an
// explicitly supplied zero value; update applies only what was sent.
// OTSlotId is the deprecated single-slot field kept for older clients;
// OTSlotIds is the current array form and wins when both are present.
type allocationRequest struct {
	PatientID         *uint64   `json:"PatientId"`
	OTID              *uint64   `json:"OTId"`
	LeadSurgeonID     *uint64   `json:"LeadSurgeonId"`
	AssistantDoctorID *uint64   `json:"AssistantDoctorId"`
	AnaesthetistID    *uint64   `json:"AnaesthetistId"`
	NurseID           *uint64   `json:"NurseId"`
	BillID            *uint64   `json:"BillId"`
	AppointmentID     *uint64   `json:"AppointmentId"`
	EmergencySlotID   *uint64   `json:"EmergencyBedSlotId"`
	SurgeryTypeID     *uint64   `json:"SurgeryTypeId"`
	OTAllocationDate  *string   `json:"OTAllocationDate"`
	StartTime         *string   `json:"StartTime"`
	EndTime           *string   `json:"EndTime"`
	ActualStartTime   *string   `json:"ActualStartTime"`
	ActualEndTime     *string   `json:"ActualEndTime"`
	DurationMinutes   *uint32   `json:"DurationMinutes"`
	OperationDetails  *string   `json:"OperationDetails"`
	PreOpNotes        *string   `json:"PreOpNotes"`
	PostOpNotes       *string   `json:"PostOpNotes"`
	Documents         *[]string `json:"Documents"`
	OperationStatus   *string   `json:"OperationStatus"`
	OTSlotID          *uint64   `json:"OTSlotId"`
	OTSlotIDs         *[]uint64 `json:"OTSlotIds"`
}

// payload converts the request into the validator's shape.  currentTheater
// is the stored theater on update (zero on create) so slot parent checks use
// the right theater when the body does not change it.
func (r *allocationRequest) payload(slots schedule.SlotSelection, currentTheater uint64, creator *uint64) schedule.Payload {
	return schedule.Payload{
		PatientID:        r.PatientID,
		TheaterID:        r.OTID,
		LeadSurgeonID:    r.LeadSurgeonID,
		AssistantID:      r.AssistantDoctorID,
		AnaesthetistID:   r.AnaesthetistID,
		NurseID:          r.NurseID,
		BillID:           r.BillID,
		AppointmentID:    r.AppointmentID,
		SurgeryTypeID:    r.SurgeryTypeID,
		CreatedBy:        creator,
		AllocationDate:   r.OTAllocationDate,
		StartTime:        r.StartTime,
		EndTime:          r.EndTime,
		ActualStart:      r.ActualStartTime,
		ActualEnd:        r.ActualEndTime,
		Status:           r.OperationStatus,
		Slots:            slots,
		CurrentTheaterID: currentTheater,
	}
}

// Create handles POST /v1/allocations.  It validates the payload, books the
// requested slots atomically with the header insert and responds 201 with
// the enriched allocation.  Slot conflicts respond 409.
func (h *AllocationHandler) Create(c echo.Context) error {
	var req allocationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()

	slots := schedule.NormalizeSlotInput(req.OTSlotID, req.OTSlotIDs)
	var creator *uint64
	if id := actorID(c); id != 0 {
		creator = &id
	}
	fieldErrs, err := h.Validator.Validate(ctx, req.payload(slots, 0, creator), schedule.ModeCreate)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if len(fieldErrs) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fieldErrs})
	}

	allocDate, _ := datefmt.ToStorage(*req.OTAllocationDate)
	rec := &model.Allocation{
		PatientID:        *req.PatientID,
		TheaterID:        *req.OTID,
		LeadSurgeonID:    *req.LeadSurgeonID,
		AppointmentID:    req.AppointmentID,
		EmergencySlotID:  req.EmergencySlotID,
		SurgeryTypeID:    req.SurgeryTypeID,
		AssistantID:      req.AssistantDoctorID,
		AnaesthetistID:   req.AnaesthetistID,
		NurseID:          req.NurseID,
		BillID:           req.BillID,
		CreatedBy:        creator,
		AllocDate:        allocDate,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		ActualStart:      req.ActualStartTime,
		ActualEnd:        req.ActualEndTime,
		DurationMinutes:  req.DurationMinutes,
		OperationDetails: req.OperationDetails,
		PreOpNotes:       req.PreOpNotes,
		PostOpNotes:      req.PostOpNotes,
	}
	if req.Documents != nil {
		rec.Documents = *req.Documents
	}
	if req.OperationStatus != nil {
		rec.Status = *req.OperationStatus
	}

	created, cs, err := h.Store.Create(ctx, rec, slots)
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "slot_already_booked"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create allocation"})
	}
	h.publishAudit(c, "created", created, cs)

	view, err := h.AllocRepo.GetView(ctx, created.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load allocation"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": view})
}

// Update handles PUT /v1/allocations/:id.  Only supplied fields are
// validated and applied.  Omitting both slot fields leaves bindings
// untouched; an empty OTSlotIds array releases every slot; setting status to
// Cancelled or Postponed releases every slot regardless of the slot fields.
func (h *AllocationHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid allocation id"})
	}
	var req allocationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()

	stored, err := h.AllocRepo.GetRecord(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "allocation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	slots := schedule.NormalizeSlotInput(req.OTSlotID, req.OTSlotIDs)
	fieldErrs, err := h.Validator.Validate(ctx, req.payload(slots, stored.TheaterID, nil), schedule.ModeUpdate)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if len(fieldErrs) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fieldErrs})
	}

	patch := repository.AllocationPatch{
		PatientID:        req.PatientID,
		TheaterID:        req.OTID,
		LeadSurgeonID:    req.LeadSurgeonID,
		AppointmentID:    req.AppointmentID,
		EmergencySlotID:  req.EmergencySlotID,
		SurgeryTypeID:    req.SurgeryTypeID,
		AssistantID:      req.AssistantDoctorID,
		AnaesthetistID:   req.AnaesthetistID,
		NurseID:          req.NurseID,
		BillID:           req.BillID,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		ActualStart:      req.ActualStartTime,
		ActualEnd:        req.ActualEndTime,
		DurationMinutes:  req.DurationMinutes,
		OperationDetails: req.OperationDetails,
		PreOpNotes:       req.PreOpNotes,
		PostOpNotes:      req.PostOpNotes,
		Documents:        req.Documents,
		Status:           req.OperationStatus,
		Slots:            slots,
	}
	if req.OTAllocationDate != nil {
		d, derr := datefmt.ToStorage(*req.OTAllocationDate)
		if derr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed",
				"fields": []schedule.FieldError{{Field: "OTAllocationDate", Code: "bad_format",
					Message: "date must be in day-month-year format"}}})
		}
		patch.AllocDate = &d
	}

	updated, cs, err := h.Store.Update(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "allocation not found"})
		case errors.Is(err, repository.ErrSlotTaken):
			return c.JSON(http.StatusConflict, echo.Map{"error": "slot_already_booked"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update allocation"})
		}
	}
	h.publishAudit(c, "updated", updated, cs)

	view, err := h.AllocRepo.GetView(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load allocation"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": view})
}

// Get handles GET /v1/allocations/:id.
func (h *AllocationHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid allocation id"})
	}
	view, err := h.AllocRepo.GetView(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "allocation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load allocation"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": view})
}

// List handles GET /v1/allocations with optional filters.
func (h *AllocationHandler) List(c echo.Context) error {
	var f repository.Filter
	if s := c.QueryParam("status"); s != "" {
		if _, ok := schedule.ParseStatus(s); !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status value"})
		}
		f.Status = s
	}
	// operationStatus is the legacy name for the same filter.
	if s := c.QueryParam("operationStatus"); s != "" && f.Status == "" {
		if _, ok := schedule.ParseStatus(s); !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status value"})
		}
		f.Status = s
	}
	var badParam string
	f.PatientID = queryID(c, "patientId", &badParam)
	f.TheaterID = queryID(c, "otId", &badParam)
	f.SurgeryTypeID = queryID(c, "surgeryId", &badParam)
	f.LeadSurgeonID = queryID(c, "leadSurgeonId", &badParam)
	if badParam != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + badParam})
	}
	if s := c.QueryParam("fromDate"); s != "" {
		d, err := datefmt.ToStorage(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid fromDate"})
		}
		f.From = &d
	}
	if s := c.QueryParam("toDate"); s != "" {
		d, err := datefmt.ToStorage(s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid toDate"})
		}
		f.To = &d
	}
	f.Page, _ = strconv.Atoi(c.QueryParam("page"))
	f.PageSize, _ = strconv.Atoi(c.QueryParam("pageSize"))

	items, total, err := h.AllocRepo.List(c.Request().Context(), f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load allocations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total": total})
}

// Delete handles DELETE /v1/allocations/:id.  Bindings are removed in the
// same transaction as the header row.
func (h *AllocationHandler) Delete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid allocation id"})
	}
	released, err := h.Store.Delete(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "allocation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete allocation"})
	}
	_ = queue_publisher.PublishAllocationAudit(c.Request().Context(), queue.AllocationAuditEvent{
		Action:        "deleted",
		AllocationID:  id,
		SlotsReleased: released,
		ActorID:       actorID(c),
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	})
	return c.NoContent(http.StatusNoContent)
}

// TodayCounts handles GET /v1/allocations/today-counts.
func (h *AllocationHandler) TodayCounts(c echo.Context) error {
	return h.countsFor(c, time.Now().UTC())
}

// Counts handles GET /v1/allocations/counts?date=.
func (h *AllocationHandler) Counts(c echo.Context) error {
	d, err := datefmt.ToStorage(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
	}
	return h.countsFor(c, d)
}

func (h *AllocationHandler) countsFor(c echo.Context, date time.Time) error {
	counts, err := h.AllocRepo.CountsByDate(c.Request().Context(), date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load counts"})
	}
	byStatus := echo.Map{}
	var total int64
	for _, s := range []schedule.Status{
		schedule.StatusScheduled, schedule.StatusInProgress, schedule.StatusCompleted,
		schedule.StatusCancelled, schedule.StatusPostponed,
	} {
		n := counts[string(s)]
		byStatus[string(s)] = n
		total += n
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":   datefmt.ToDisplay(date),
		"counts": byStatus,
		"total":  total,
	})
}

// publishAudit emits the booked/released slot delta after a committed write.
// Publishing is best effort; the publisher logs failures and the response is
// not affected.
func (h *AllocationHandler) publishAudit(c echo.Context, action string, rec *model.Allocation, cs repository.ChangeSet) {
	_ = queue_publisher.PublishAllocationAudit(c.Request().Context(), queue.AllocationAuditEvent{
		Action:        action,
		AllocationID:  rec.ID,
		PatientID:     rec.PatientID,
		TheaterID:     rec.TheaterID,
		Status:        rec.Status,
		Date:          datefmt.ToDisplay(rec.AllocDate),
		SlotsAdded:    cs.Added,
		SlotsReleased: cs.Removed,
		ForcedRelease: cs.ForcedRelease,
		ActorID:       actorID(c),
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	})
}

// queryID parses an optional numeric query parameter; on failure it records
// the parameter name so the caller can reject the request.
func queryID(c echo.Context, name string, bad *string) uint64 {
	s := c.QueryParam(name)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		*bad = name
		return 0
	}
	return n
}
