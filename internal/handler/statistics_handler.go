package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lernova/attendsheets-api/internal/service"
	appErrors "github.com/lernova/attendsheets-api/pkg/errors"
	"github.com/lernova/attendsheets-api/pkg/response"
)

// StatisticsHandler exposes attendance statistics and exports.
type StatisticsHandler struct {
	stats  *service.StatisticsService
	export *service.ExportService
}

// NewStatisticsHandler creates a new handler.
func NewStatisticsHandler(stats *service.StatisticsService, export *service.ExportService) *StatisticsHandler {
	return &StatisticsHandler{stats: stats, export: export}
}

// ClassStatistics godoc
// @Summary Class attendance statistics
// @Description Aggregate roster attendance with per-student banding
// @Tags Statistics
// @Produce json
// @Security BearerAuth
// @Param class_id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{class_id}/statistics [get]
func (h *StatisticsHandler) ClassStatistics(c *gin.Context) {
	stats, err := h.stats.ClassStatistics(c.Request.Context(), c.Param("class_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// StudentStatistics godoc
// @Summary Student attendance statistics
// @Tags Statistics
// @Produce json
// @Security BearerAuth
// @Param class_id path string true "Class ID"
// @Param student_id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{class_id}/students/{student_id}/statistics [get]
func (h *StatisticsHandler) StudentStatistics(c *gin.Context) {
	stats, err := h.stats.StudentStatistics(c.Request.Context(), c.Param("class_id"), c.Param("student_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// StudentDayStatistics godoc
// @Summary Student per-day attendance counts
// @Tags Statistics
// @Produce json
// @Security BearerAuth
// @Param class_id path string true "Class ID"
// @Param student_id path string true "Student ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /classes/{class_id}/students/{student_id}/statistics/day [get]
func (h *StatisticsHandler) StudentDayStatistics(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return
	}

	stats, err := h.stats.StudentDayStatistics(c.Request.Context(), c.Param("class_id"), c.Param("student_id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export class statistics
// @Description Download the class aggregate as CSV or PDF
// @Tags Statistics
// @Produce octet-stream
// @Security BearerAuth
// @Param class_id path string true "Class ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /classes/{class_id}/statistics/export [get]
func (h *StatisticsHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))

	result, err := h.export.ClassStatisticsExport(c.Request.Context(), c.Param("class_id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
