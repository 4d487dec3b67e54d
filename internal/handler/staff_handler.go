package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crewplan/crew-api/internal/models"
	"github.com/crewplan/crew-api/internal/service"
	appErrors "github.com/crewplan/crew-api/pkg/errors"
	"github.com/crewplan/crew-api/pkg/response"
)

// StaffHandler wires staff management to HTTP routes.
type StaffHandler struct {
	staff       *service.StaffService
	invitations *service.InvitationService
}

// NewStaffHandler constructs a new StaffHandler.
func NewStaffHandler(staff *service.StaffService, invitations *service.InvitationService) *StaffHandler {
	return &StaffHandler{staff: staff, invitations: invitations}
}

// List godoc
// @Summary List staff
// @Tags Staff
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search by name/code/email"
// @Param active query bool false "Filter by active status"
// @Param qualification query string false "Filter by qualification id"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /staff [get]
func (h *StaffHandler) List(c *gin.Context) {
	filter := models.StaffFilter{
		Search:          strings.TrimSpace(c.Query("search")),
		QualificationID: c.Query("qualification"),
		SortBy:          c.Query("sort"),
		SortOrder:       c.Query("order"),
	}
	if active := c.Query("active"); active != "" {
		switch strings.ToLower(active) {
		case "true":
			val := true
			filter.Active = &val
		case "false":
			val := false
			filter.Active = &val
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	staff, pagination, err := h.staff.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff, pagination)
}

func (h *StaffHandler) Get(c *gin.Context) {
	staff, err := h.staff.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff, nil)
}

// Create godoc
// @Summary Register a staff member
// @Tags Staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateStaffRequest true "Staff member"
// @Success 201 {object} response.Envelope
// @Router /staff [post]
func (h *StaffHandler) Create(c *gin.Context) {
	var req service.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	staff, err := h.staff.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, staff)
}

func (h *StaffHandler) Update(c *gin.Context) {
	var req service.UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	staff, err := h.staff.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff, nil)
}

// SetQualifications godoc
// @Summary Replace a staff member's qualification set
// @Tags Staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Staff ID"
// @Param payload body handler.setQualificationsRequest true "Qualification ids"
// @Success 200 {object} response.Envelope
// @Router /staff/{id}/qualifications [put]
func (h *StaffHandler) SetQualifications(c *gin.Context) {
	var req setQualificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	staff, err := h.staff.SetQualifications(c.Request.Context(), c.Param("id"), req.QualificationIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff, nil)
}

type setQualificationsRequest struct {
	QualificationIDs []string `json:"qualification_ids"`
}

func (h *StaffHandler) Deactivate(c *gin.Context) {
	if err := h.staff.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Invitations godoc
// @Summary List a staff member's invitations
// @Tags Staff
// @Produce json
// @Security BearerAuth
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Envelope
// @Router /staff/{id}/invitations [get]
func (h *StaffHandler) Invitations(c *gin.Context) {
	invitations, err := h.invitations.ListByStaff(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invitations, nil)
}
