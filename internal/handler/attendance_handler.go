package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lernova/attendsheets-api/internal/models"
	"github.com/lernova/attendsheets-api/internal/service"
	appErrors "github.com/lernova/attendsheets-api/pkg/errors"
	"github.com/lernova/attendsheets-api/pkg/response"
)

// AttendanceHandler wires manual attendance writes.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Update godoc
// @Summary Write attendance for a student and date
// @Description Overwrite the cell with the given session marks
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param class_id path string true "Class ID"
// @Param payload body models.UpdateAttendanceRequest true "Attendance payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{class_id}/attendance [put]
func (h *AttendanceHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	if err := h.attendance.UpdateAttendance(c.Request.Context(), claims.UserID, c.Param("class_id"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// AppendMark godoc
// @Summary Append one session mark
// @Description Add a mark to the cell, preserving earlier marks for the date
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param class_id path string true "Class ID"
// @Param payload body appendMarkRequest true "Mark payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes/{class_id}/attendance/marks [post]
func (h *AttendanceHandler) AppendMark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req appendMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mark payload"))
		return
	}

	err := h.attendance.AppendMark(c.Request.Context(), claims.UserID, c.Param("class_id"),
		req.StudentID, req.Date, models.AttendanceStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

type appendMarkRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	Date      string `json:"date" binding:"required"`
	Status    string `json:"status" binding:"required"`
}
