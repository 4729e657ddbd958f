package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lernova/attendsheets-api/internal/repository"
	appErrors "github.com/lernova/attendsheets-api/pkg/errors"
	"github.com/lernova/attendsheets-api/pkg/response"
)

// ClassHandler exposes class and roster reads.
type ClassHandler struct {
	roster *repository.RosterRepository
}

// NewClassHandler creates a new handler.
func NewClassHandler(roster *repository.RosterRepository) *ClassHandler {
	return &ClassHandler{roster: roster}
}

// List godoc
// @Summary List the teacher's classes
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	classes, err := h.roster.ListClassesByTeacher(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes"))
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// Get godoc
// @Summary Class detail with roster
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param class_id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{class_id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	classID := c.Param("class_id")

	class, err := h.roster.GetClass(ctx, classID)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class"))
		return
	}
	if class == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "class not found"))
		return
	}

	roster, err := h.roster.ListRoster(ctx, classID)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster"))
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"class":  class,
		"roster": roster,
	}, nil)
}
