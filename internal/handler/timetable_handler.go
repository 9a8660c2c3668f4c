package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/dto"
	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
	appErrors "github.com/AltamashPatel/edu-schedule-wiz/pkg/errors"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/response"
)

type timetableManager interface {
	List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableWithBatch, *models.Pagination, error)
	Summary(ctx context.Context) (*dto.TimetableSummary, error)
	Get(ctx context.Context, id string) (*models.TimetableWithBatch, error)
	Create(ctx context.Context, req dto.CreateTimetableRequest, actorID string) (*models.Timetable, error)
	Update(ctx context.Context, id string, req dto.UpdateTimetableRequest, actorID string) (*models.Timetable, error)
	Delete(ctx context.Context, id, actorID string) error
	ListSlots(ctx context.Context, timetableID string) ([]models.TimetableSlot, error)
	TransitionStatus(ctx context.Context, id string, to models.TimetableStatus, actorID string) (*models.Timetable, error)
}

type slotGenerator interface {
	GenerateSlots(ctx context.Context, req dto.GenerateSlotsRequest) (*dto.GenerateSlotsResult, error)
}

// TimetableHandler exposes timetable lifecycle and generation endpoints.
type TimetableHandler struct {
	timetables timetableManager
	generator  slotGenerator
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(timetables timetableManager, generator slotGenerator) *TimetableHandler {
	return &TimetableHandler{timetables: timetables, generator: generator}
}

// List godoc
// @Summary List timetables
// @Tags Timetables
// @Produce json
// @Param status query string false "Filter by status"
// @Param batch_id query string false "Filter by batch"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	filter := models.TimetableFilter{
		BatchID:  c.Query("batch_id"),
		Page:     parseIntDefault(c.Query("page"), 1),
		PageSize: parseIntDefault(c.Query("page_size"), 20),
	}
	if status := c.Query("status"); status != "" {
		s := models.TimetableStatus(status)
		filter.Status = &s
	}

	items, pagination, err := h.timetables.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Summary godoc
// @Summary Count timetables per status
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetables/summary [get]
func (h *TimetableHandler) Summary(c *gin.Context) {
	summary, err := h.timetables.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Get godoc
// @Summary Get timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	timetable, err := h.timetables.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// Create godoc
// @Summary Create draft timetable
// @Description With auto_generate the slots are generated right away. A failed generation still returns 201 because the timetable exists; meta.generation_failed carries the error.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.CreateTimetableRequest true "Timetable payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timetables [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	var req dto.CreateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable payload"))
		return
	}
	actorID := actorFromContext(c)

	timetable, err := h.timetables.Create(c.Request.Context(), req, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !req.AutoGenerate {
		response.Created(c, dto.CreateTimetableResponse{Timetable: timetable})
		return
	}

	result, err := h.generator.GenerateSlots(c.Request.Context(), dto.GenerateSlotsRequest{
		TimetableID: timetable.ID,
		BatchID:     timetable.BatchID,
		ActorID:     actorID,
	})
	if err != nil {
		appErr := appErrors.FromError(err)
		response.Created(c, dto.CreateTimetableResponse{Timetable: timetable}, response.Meta{
			"generation_failed": true,
			"generation_error":  appErr,
			"message":           "Timetable created, but slot generation failed",
		})
		return
	}

	meta := generationMeta(result)
	meta["message"] = fmt.Sprintf("Timetable created with %d slots", result.SlotsCreated)
	response.Created(c, dto.CreateTimetableResponse{Timetable: timetable, Generation: result}, meta)
}

// Update godoc
// @Summary Update draft timetable details
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.UpdateTimetableRequest true "Timetable payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/{id} [put]
func (h *TimetableHandler) Update(c *gin.Context) {
	var req dto.UpdateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable payload"))
		return
	}
	timetable, err := h.timetables.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// Delete godoc
// @Summary Delete timetable and its slots
// @Tags Timetables
// @Param id path string true "Timetable ID"
// @Success 204
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.timetables.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Slots godoc
// @Summary List timetable slots
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/slots [get]
func (h *TimetableHandler) Slots(c *gin.Context) {
	slots, err := h.timetables.ListSlots(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Generate godoc
// @Summary Generate slots for a draft timetable
// @Description Runs the round-robin generator and commits every conflict-free slot in one transaction.
// @Tags Generation
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.GenerateTimetableRequest false "Optional batch and department override"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /timetables/{id}/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var body dto.GenerateTimetableRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
			return
		}
	}

	id := c.Param("id")
	if body.BatchID == "" {
		timetable, err := h.timetables.Get(c.Request.Context(), id)
		if err != nil {
			response.Error(c, err)
			return
		}
		body.BatchID = timetable.BatchID
	}

	result, err := h.generator.GenerateSlots(c.Request.Context(), dto.GenerateSlotsRequest{
		TimetableID: id,
		BatchID:     body.BatchID,
		Department:  body.Department,
		ActorID:     actorFromContext(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, generationMeta(result))
}

// Submit godoc
// @Summary Submit a draft for review
// @Tags Workflow
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/{id}/submit [post]
func (h *TimetableHandler) Submit(c *gin.Context) {
	h.transition(c, models.TimetableStatusUnderReview)
}

// Approve godoc
// @Summary Approve a timetable under review
// @Tags Workflow
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/{id}/approve [post]
func (h *TimetableHandler) Approve(c *gin.Context) {
	h.transition(c, models.TimetableStatusApproved)
}

// Reject godoc
// @Summary Send a timetable under review back to draft
// @Tags Workflow
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/{id}/reject [post]
func (h *TimetableHandler) Reject(c *gin.Context) {
	h.transition(c, models.TimetableStatusDraft)
}

// Publish godoc
// @Summary Publish an approved timetable
// @Tags Workflow
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/{id}/publish [post]
func (h *TimetableHandler) Publish(c *gin.Context) {
	h.transition(c, models.TimetableStatusPublished)
}

func (h *TimetableHandler) transition(c *gin.Context, to models.TimetableStatus) {
	timetable, err := h.timetables.TransitionStatus(c.Request.Context(), c.Param("id"), to, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// generationMeta flags a partial success: some but not all open cells filled.
func generationMeta(result *dto.GenerateSlotsResult) response.Meta {
	open := result.CellsConsidered
	for _, cell := range result.SkippedCells {
		if cell.Reason == dto.SkipReasonBlocked {
			open--
		}
	}
	return response.Meta{
		"partial_success": result.SlotsCreated > 0 && result.SlotsCreated < open,
		"open_cells":      open,
	}
}

func parseIntDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
