package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lernova/attendsheets-api/internal/models"
	"github.com/lernova/attendsheets-api/internal/service"
	appErrors "github.com/lernova/attendsheets-api/pkg/errors"
	"github.com/lernova/attendsheets-api/pkg/response"
)

// QRSessionHandler wires HTTP endpoints to the rotating-code session engine.
type QRSessionHandler struct {
	sessions   *service.QRSessionService
	attendance *service.AttendanceService
	logger     *zap.Logger
}

// NewQRSessionHandler creates a new handler.
func NewQRSessionHandler(sessions *service.QRSessionService, attendance *service.AttendanceService, logger *zap.Logger) *QRSessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QRSessionHandler{sessions: sessions, attendance: attendance, logger: logger}
}

// Start godoc
// @Summary Start a QR attendance session
// @Description Open a rotating-code session for a class and date
// @Tags QR Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.StartSessionRequest true "Start payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /qr/sessions [post]
func (h *QRSessionHandler) Start(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid start payload"))
		return
	}

	session, err := h.sessions.Start(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, session)
}

// Get godoc
// @Summary Read the current session code
// @Description Return the active session, rotating the code when stale
// @Tags QR Sessions
// @Produce json
// @Security BearerAuth
// @Param class_id path string true "Class ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /qr/sessions/{class_id} [get]
func (h *QRSessionHandler) Get(c *gin.Context) {
	classID := c.Param("class_id")
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return
	}

	session, err := h.sessions.Get(c.Request.Context(), classID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, session, nil)
}

// Scan godoc
// @Summary Redeem a scanned code
// @Description Record the authenticated student's redemption for the active session
// @Tags QR Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ScanRequest true "Scan payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /qr/scan [post]
func (h *QRSessionHandler) Scan(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scan payload"))
		return
	}

	result, err := h.sessions.Scan(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Stop godoc
// @Summary Stop a QR attendance session
// @Description Complete the session and write roster marks from the scanned set
// @Tags QR Sessions
// @Produce json
// @Security BearerAuth
// @Param class_id path string true "Class ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /qr/sessions/{class_id}/stop [post]
func (h *QRSessionHandler) Stop(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	classID := c.Param("class_id")
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return
	}

	summary, err := h.sessions.Stop(c.Request.Context(), claims.UserID, classID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	marks, err := h.attendance.ApplyStopMarks(c.Request.Context(), classID, date, summary.ScannedStudents)
	if err != nil {
		// The session is already completed; report the summary but flag the
		// incomplete handoff so the teacher can re-mark manually.
		h.logger.Error("stop mark handoff failed",
			zap.String("class_id", classID),
			zap.String("date", date),
			zap.Error(err),
		)
		response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{"marks_applied": false})
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"session": summary,
		"marks":   marks,
	}, nil)
}

// Sessions godoc
// @Summary List sessions for a class and date
// @Tags QR Sessions
// @Produce json
// @Security BearerAuth
// @Param class_id path string true "Class ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /qr/sessions/{class_id}/history [get]
func (h *QRSessionHandler) Sessions(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	classID := c.Param("class_id")
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return
	}

	sessions, err := h.sessions.Sessions(c.Request.Context(), claims.UserID, classID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, sessions, nil)
}
