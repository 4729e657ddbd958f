package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lernova/attendsheets-api/internal/models"
	appErrors "github.com/lernova/attendsheets-api/pkg/errors"
)

type attendanceRoster interface {
	GetClass(ctx context.Context, classID string) (*models.Class, error)
	ListRoster(ctx context.Context, classID string) ([]models.RosterEntry, error)
	GetEntry(ctx context.Context, classID, studentID string) (*models.RosterEntry, error)
	SetAttendanceCell(ctx context.Context, classID, studentID, date string, cell json.RawMessage) error
	SetAttendanceCellIfAbsent(ctx context.Context, classID, studentID, date string, cell json.RawMessage) (bool, error)
	AppendSessionMark(ctx context.Context, classID, studentID, date string, mark models.SessionMark) error
}

type statsInvalidator interface {
	InvalidateClass(ctx context.Context, classID string)
}

// StopMarkResult summarises the roster handoff after a session stop.
type StopMarkResult struct {
	MarkedPresent int `json:"marked_present"`
	MarkedAbsent  int `json:"marked_absent"`
	Skipped       int `json:"skipped"`
}

// AttendanceService writes attendance marks to the roster. It covers the
// manual marking endpoint and the handoff that runs after a QR session stop.
type AttendanceService struct {
	roster    attendanceRoster
	stats     statsInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService constructs the service.
func NewAttendanceService(roster attendanceRoster, stats statsInvalidator, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{roster: roster, stats: stats, validator: validate, logger: logger, now: time.Now}
}

// UpdateAttendance overwrites the cell for (student, date) with the given
// session marks, written in the current multi-session shape.
func (s *AttendanceService) UpdateAttendance(ctx context.Context, teacherID, classID string, req models.UpdateAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	for _, mark := range req.Sessions {
		if mark.Status != "" && !mark.Status.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, "invalid attendance status")
		}
	}

	if err := s.requireOwnership(ctx, classID, teacherID); err != nil {
		return err
	}

	entry, err := s.roster.GetEntry(ctx, classID, req.StudentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster entry")
	}
	if entry == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in class")
	}

	cell, err := s.marshalCell(req.Sessions)
	if err != nil {
		return err
	}
	if err := s.roster.SetAttendanceCell(ctx, classID, req.StudentID, req.Date, cell); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write attendance")
	}

	if s.stats != nil {
		s.stats.InvalidateClass(ctx, classID)
	}
	s.logger.Info("attendance updated",
		zap.String("class_id", classID),
		zap.String("student_id", req.StudentID),
		zap.String("date", req.Date),
		zap.Int("sessions", len(req.Sessions)),
	)
	return nil
}

// AppendMark appends one session entry to a student's cell, preserving any
// earlier marks for the same date regardless of their encoding generation.
func (s *AttendanceService) AppendMark(ctx context.Context, teacherID, classID, studentID, date string, status models.AttendanceStatus) error {
	if !status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "invalid attendance status")
	}
	if err := s.requireOwnership(ctx, classID, teacherID); err != nil {
		return err
	}

	markedAt := s.now().UTC()
	mark := models.SessionMark{Status: status, MarkedAt: &markedAt, Method: "manual"}
	if err := s.roster.AppendSessionMark(ctx, classID, studentID, date, mark); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append mark")
	}

	if s.stats != nil {
		s.stats.InvalidateClass(ctx, classID)
	}
	return nil
}

// ApplyStopMarks converts the scanned-student set of a completed session
// into roster marks: scanned students get a present mark, everyone else on
// the roster an absent mark. A date that already carries a cell is left
// untouched so a manual correction survives the handoff.
func (s *AttendanceService) ApplyStopMarks(ctx context.Context, classID, date string, scannedStudents []string) (*StopMarkResult, error) {
	entries, err := s.roster.ListRoster(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	scanned := make(map[string]struct{}, len(scannedStudents))
	for _, id := range scannedStudents {
		scanned[id] = struct{}{}
	}

	result := &StopMarkResult{}
	for _, entry := range entries {
		status := models.AttendanceStatusAbsent
		if _, ok := scanned[entry.StudentID]; ok {
			status = models.AttendanceStatusPresent
		}

		cell, err := s.qrCell(status)
		if err != nil {
			return nil, err
		}
		written, err := s.roster.SetAttendanceCellIfAbsent(ctx, classID, entry.StudentID, date, cell)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write stop marks")
		}
		switch {
		case !written:
			result.Skipped++
		case status == models.AttendanceStatusPresent:
			result.MarkedPresent++
		default:
			result.MarkedAbsent++
		}
	}

	if s.stats != nil {
		s.stats.InvalidateClass(ctx, classID)
	}
	s.logger.Info("stop marks applied",
		zap.String("class_id", classID),
		zap.String("date", date),
		zap.Int("marked_present", result.MarkedPresent),
		zap.Int("marked_absent", result.MarkedAbsent),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *AttendanceService) requireOwnership(ctx context.Context, classID, teacherID string) error {
	class, err := s.roster.GetClass(ctx, classID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if class == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	if class.TeacherID != teacherID {
		return appErrors.Clone(appErrors.ErrForbidden, "class belongs to another teacher")
	}
	return nil
}

func (s *AttendanceService) marshalCell(sessions []models.SessionMark) (json.RawMessage, error) {
	payload, err := json.Marshal(models.MultiSessionValue{Sessions: sessions, UpdatedAt: s.now().UTC()})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode attendance cell")
	}
	return payload, nil
}

func (s *AttendanceService) qrCell(status models.AttendanceStatus) (json.RawMessage, error) {
	markedAt := s.now().UTC()
	return s.marshalCell([]models.SessionMark{{Status: status, MarkedAt: &markedAt, Method: "qr"}})
}
