package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crewplan/crew-api/internal/service"
	appErrors "github.com/crewplan/crew-api/pkg/errors"
	"github.com/crewplan/crew-api/pkg/response"
)

// ShiftHandler wires shift management to HTTP routes.
type ShiftHandler struct {
	shifts *service.ShiftService
}

// NewShiftHandler constructs a new ShiftHandler.
func NewShiftHandler(shifts *service.ShiftService) *ShiftHandler {
	return &ShiftHandler{shifts: shifts}
}

// ListByEvent godoc
// @Summary List an event's shifts
// @Tags Shifts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/shifts [get]
func (h *ShiftHandler) ListByEvent(c *gin.Context) {
	shifts, err := h.shifts.ListByEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shifts, nil)
}

func (h *ShiftHandler) Get(c *gin.Context) {
	shift, err := h.shifts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shift, nil)
}

// Create godoc
// @Summary Add a shift to an event
// @Tags Shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param payload body service.ShiftRequest true "Shift"
// @Success 201 {object} response.Envelope
// @Router /events/{id}/shifts [post]
func (h *ShiftHandler) Create(c *gin.Context) {
	var req service.ShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	shift, err := h.shifts.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, shift)
}

func (h *ShiftHandler) Update(c *gin.Context) {
	var req service.ShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	shift, err := h.shifts.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shift, nil)
}

func (h *ShiftHandler) Delete(c *gin.Context) {
	if err := h.shifts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
