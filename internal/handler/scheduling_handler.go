package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crewplan/crew-api/internal/middleware"
	"github.com/crewplan/crew-api/internal/models"
	"github.com/crewplan/crew-api/internal/scheduling"
	"github.com/crewplan/crew-api/internal/service"
	appErrors "github.com/crewplan/crew-api/pkg/errors"
	"github.com/crewplan/crew-api/pkg/response"
)

type schedulingEngine interface {
	ListAvailableShifts(ctx context.Context, staffID string, showAll bool) (*service.ShiftBrowse, error)
	ApplyForShift(ctx context.Context, staffID, shiftID string) (*models.Assignment, error)
	AssignStaff(ctx context.Context, shiftID string, req service.AssignStaffRequest) (*models.Assignment, error)
	BulkAssign(ctx context.Context, shiftID string, req service.BulkAssignRequest) (*service.BulkAssignResult, error)
	Unassign(ctx context.Context, actor scheduling.Actor, shiftID, staffID string) error
	ConfirmAssignment(ctx context.Context, actor scheduling.Actor, assignmentID string) (*models.Assignment, error)
	UpgradeAssignment(ctx context.Context, assignmentID string) (*models.Assignment, error)
	ShiftRoster(ctx context.Context, shiftID string) ([]models.AssignmentDetail, scheduling.Occupancy, error)
}

// SchedulingHandler wires the assignment engine to HTTP routes.
type SchedulingHandler struct {
	scheduling schedulingEngine
}

// NewSchedulingHandler constructs a new SchedulingHandler.
func NewSchedulingHandler(scheduling *service.SchedulingService) *SchedulingHandler {
	return &SchedulingHandler{scheduling: scheduling}
}

// requireStaffIdentity resolves the staff id a staff-scoped operation acts
// on. Staff always act as themselves; admins may act on behalf of any
// staff via the staff_id query parameter.
func requireStaffIdentity(c *gin.Context) (string, bool) {
	if staffID := middleware.StaffID(c); staffID != "" {
		return staffID, true
	}
	if middleware.Caller(c).Admin {
		if staffID := c.Query("staff_id"); staffID != "" {
			return staffID, true
		}
	}
	response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no staff identity for this operation"))
	return "", false
}

// Browse godoc
// @Summary List available shifts with eligibility
// @Tags Scheduling
// @Produce json
// @Security BearerAuth
// @Param all query bool false "Include shifts the caller cannot apply to"
// @Param staff_id query string false "Act on behalf of staff (admin only)"
// @Success 200 {object} response.Envelope
// @Router /shifts/available [get]
func (h *SchedulingHandler) Browse(c *gin.Context) {
	staffID, ok := requireStaffIdentity(c)
	if !ok {
		return
	}
	showAll := strings.EqualFold(c.Query("all"), "true")
	browse, err := h.scheduling.ListAvailableShifts(c.Request.Context(), staffID, showAll)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, browse, nil)
}

// Apply godoc
// @Summary Register interest in a shift
// @Tags Scheduling
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /shifts/{id}/apply [post]
func (h *SchedulingHandler) Apply(c *gin.Context) {
	staffID, ok := requireStaffIdentity(c)
	if !ok {
		return
	}
	assignment, err := h.scheduling.ApplyForShift(c.Request.Context(), staffID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Assign godoc
// @Summary Assign a staff member to a shift
// @Tags Scheduling
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param payload body service.AssignStaffRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /shifts/{id}/assignments [post]
func (h *SchedulingHandler) Assign(c *gin.Context) {
	var req service.AssignStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	assignment, err := h.scheduling.AssignStaff(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// BulkAssign godoc
// @Summary Assign multiple staff to a shift
// @Tags Scheduling
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param payload body service.BulkAssignRequest true "Batch"
// @Success 200 {object} response.Envelope
// @Router /shifts/{id}/assignments/bulk [post]
func (h *SchedulingHandler) BulkAssign(c *gin.Context) {
	var req service.BulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	result, err := h.scheduling.BulkAssign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Unassign godoc
// @Summary Release a staff member from a shift
// @Tags Scheduling
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Param staffId path string true "Staff ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /shifts/{id}/assignments/{staffId} [delete]
func (h *SchedulingHandler) Unassign(c *gin.Context) {
	err := h.scheduling.Unassign(c.Request.Context(), middleware.Caller(c), c.Param("id"), c.Param("staffId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Confirm godoc
// @Summary Confirm a final assignment
// @Tags Scheduling
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/{id}/confirm [post]
func (h *SchedulingHandler) Confirm(c *gin.Context) {
	assignment, err := h.scheduling.ConfirmAssignment(c.Request.Context(), middleware.Caller(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Upgrade godoc
// @Summary Promote a preliminary assignment to final
// @Tags Scheduling
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/{id}/upgrade [post]
func (h *SchedulingHandler) Upgrade(c *gin.Context) {
	assignment, err := h.scheduling.UpgradeAssignment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Roster godoc
// @Summary Shift roster with occupancy
// @Tags Scheduling
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shift ID"
// @Success 200 {object} response.Envelope
// @Router /shifts/{id}/roster [get]
func (h *SchedulingHandler) Roster(c *gin.Context) {
	assignments, occupancy, err := h.scheduling.ShiftRoster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"assignments": assignments, "occupancy": occupancy}, nil)
}
