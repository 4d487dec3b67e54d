package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crewplan/crew-api/internal/service"
	appErrors "github.com/crewplan/crew-api/pkg/errors"
	"github.com/crewplan/crew-api/pkg/response"
)

// QualificationHandler wires the qualification catalogue to HTTP routes.
type QualificationHandler struct {
	qualifications *service.QualificationService
}

// NewQualificationHandler constructs a new QualificationHandler.
func NewQualificationHandler(qualifications *service.QualificationService) *QualificationHandler {
	return &QualificationHandler{qualifications: qualifications}
}

// List godoc
// @Summary List qualifications
// @Tags Qualifications
// @Produce json
// @Param active query bool false "Only active qualifications"
// @Success 200 {object} response.Envelope
// @Router /qualifications [get]
func (h *QualificationHandler) List(c *gin.Context) {
	activeOnly := strings.EqualFold(c.Query("active"), "true")
	qualifications, err := h.qualifications.List(c.Request.Context(), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, qualifications, nil)
}

func (h *QualificationHandler) Get(c *gin.Context) {
	qualification, err := h.qualifications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, qualification, nil)
}

// Create godoc
// @Summary Create a qualification
// @Tags Qualifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.QualificationRequest true "Qualification"
// @Success 201 {object} response.Envelope
// @Router /qualifications [post]
func (h *QualificationHandler) Create(c *gin.Context) {
	var req service.QualificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	qualification, err := h.qualifications.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, qualification)
}

func (h *QualificationHandler) Update(c *gin.Context) {
	var req service.QualificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	qualification, err := h.qualifications.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, qualification, nil)
}

func (h *QualificationHandler) Deactivate(c *gin.Context) {
	if err := h.qualifications.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
