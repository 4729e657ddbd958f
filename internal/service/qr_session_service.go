package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lernova/attendsheets-api/internal/models"
	"github.com/lernova/attendsheets-api/pkg/config"
	appErrors "github.com/lernova/attendsheets-api/pkg/errors"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type qrSessionRepository interface {
	Create(ctx context.Context, session *models.QRSession) (*models.QRSession, error)
	FindActive(ctx context.Context, classID, date string) (*models.QRSession, error)
	Mutate(ctx context.Context, classID, date string, fn func(*models.QRSession) (bool, error)) (*models.QRSession, error)
	ListByClassDate(ctx context.Context, classID, date string) ([]models.QRSession, error)
}

type classReader interface {
	GetClass(ctx context.Context, classID string) (*models.Class, error)
}

// QRSessionService owns the rotating-code challenge per (class, date).
//
// Rotation is lazy: no timer runs anywhere, a stale code is replaced the
// next time the session is read. The contract is "a code is valid for at
// most rotation_interval seconds since it was generated", not "a new code
// appears every interval on the wall clock".
type QRSessionService struct {
	repo      qrSessionRepository
	classes   classReader
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	defaultRotation time.Duration
	codeLength      int
	now             func() time.Time
}

// NewQRSessionService constructs the service.
func NewQRSessionService(repo qrSessionRepository, classes classReader, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg config.QRConfig) *QRSessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	rotation := cfg.DefaultRotationInterval
	if rotation <= 0 {
		rotation = 5 * time.Second
	}
	codeLength := cfg.CodeLength
	if codeLength <= 0 {
		codeLength = 8
	}
	return &QRSessionService{
		repo:            repo,
		classes:         classes,
		metrics:         metrics,
		validator:       validate,
		logger:          logger,
		defaultRotation: rotation,
		codeLength:      codeLength,
		now:             time.Now,
	}
}

// Start opens a new session for the teacher's class. At most one active
// session may exist per (class, date); a duplicate start fails with a
// conflict rather than reusing the old session.
func (s *QRSessionService) Start(ctx context.Context, teacherID string, req models.StartSessionRequest) (*models.QRSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start session payload")
	}

	if err := s.requireOwnership(ctx, req.ClassID, teacherID); err != nil {
		return nil, err
	}

	rotation := req.RotationInterval
	if rotation <= 0 {
		rotation = int(s.defaultRotation.Seconds())
	}

	code, err := s.generateCode()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
	}

	session := &models.QRSession{
		ClassID:          req.ClassID,
		TeacherID:        teacherID,
		Date:             req.Date,
		RotationInterval: rotation,
		CurrentCode:      code,
		CodeGeneratedAt:  s.now().UTC(),
	}

	start := time.Now()
	created, err := s.repo.Create(ctx, session)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("qr_session_create", time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("qr session started",
		zap.String("class_id", created.ClassID),
		zap.String("date", created.Date),
		zap.Int("session_number", created.SessionNumber),
		zap.Int("rotation_interval", created.RotationInterval),
	)
	return created, nil
}

// Get returns the active session for (class, date), rotating the code first
// when it has outlived its interval. The rotation check runs against the
// locked row, so concurrent reads at the boundary produce one new code.
func (s *QRSessionService) Get(ctx context.Context, classID, date string) (*models.QRSession, error) {
	rotated := false
	session, err := s.repo.Mutate(ctx, classID, date, func(session *models.QRSession) (bool, error) {
		now := s.now().UTC()
		if now.Sub(session.CodeGeneratedAt) < s.rotationInterval(session) {
			return false, nil
		}
		code, err := s.generateCode()
		if err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rotate code")
		}
		session.CurrentCode = code
		session.CodeGeneratedAt = now
		rotated = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if rotated {
		if s.metrics != nil {
			s.metrics.RecordCodeRotation()
		}
		s.logger.Debug("qr code rotated",
			zap.String("class_id", classID),
			zap.String("date", date),
			zap.Int("session_number", session.SessionNumber),
		)
	}
	return session, nil
}

// Scan redeems a code for a student. A repeated scan by the same student is
// reported as already scanned, never as an error and never as a second
// entry. The class check runs before anything else so a code captured in
// one class can never be redeemed in another.
func (s *QRSessionService) Scan(ctx context.Context, studentID string, req models.ScanRequest) (*models.RedemptionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scan payload")
	}

	if req.Payload.ClassID != req.ClassID {
		s.recordScan("wrong_class")
		return nil, appErrors.ErrWrongClass
	}

	result := &models.RedemptionResult{}
	session, err := s.repo.Mutate(ctx, req.ClassID, req.Date, func(session *models.QRSession) (bool, error) {
		if req.Payload.Date != session.Date || req.Payload.Code != session.CurrentCode {
			return false, appErrors.ErrInvalidCode
		}
		if s.now().UTC().Sub(session.CodeGeneratedAt) >= s.rotationInterval(session) {
			return false, appErrors.ErrInvalidCode
		}
		if session.HasScanned(studentID) {
			result.AlreadyScanned = true
			return false, nil
		}
		session.ScannedStudents = append(session.ScannedStudents, studentID)
		return true, nil
	})
	if err != nil {
		switch err {
		case appErrors.ErrNoActiveSession:
			s.recordScan("no_session")
		case appErrors.ErrInvalidCode:
			s.recordScan("invalid_code")
		}
		return nil, err
	}

	result.SessionID = session.ID
	result.SessionNumber = session.SessionNumber
	result.ScannedCount = len(session.ScannedStudents)
	if result.AlreadyScanned {
		s.recordScan("duplicate")
	} else {
		s.recordScan("accepted")
		s.logger.Info("qr scan accepted",
			zap.String("class_id", req.ClassID),
			zap.String("date", req.Date),
			zap.String("student_id", studentID),
			zap.Int("scanned_count", result.ScannedCount),
		)
	}
	return result, nil
}

// Stop completes the session and returns the authoritative scanned-student
// set for the roster handoff. Only the owning teacher may stop a session.
func (s *QRSessionService) Stop(ctx context.Context, teacherID, classID, date string) (*models.StopSummary, error) {
	session, err := s.repo.Mutate(ctx, classID, date, func(session *models.QRSession) (bool, error) {
		if session.TeacherID != teacherID {
			return false, appErrors.Clone(appErrors.ErrForbidden, "session belongs to another teacher")
		}
		session.Status = models.QRSessionCompleted
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("qr session stopped",
		zap.String("class_id", classID),
		zap.String("date", date),
		zap.Int("session_number", session.SessionNumber),
		zap.Int("scanned_count", len(session.ScannedStudents)),
	)
	return &models.StopSummary{
		SessionID:       session.ID,
		SessionNumber:   session.SessionNumber,
		ScannedCount:    len(session.ScannedStudents),
		ScannedStudents: append([]string{}, session.ScannedStudents...),
	}, nil
}

// Sessions lists all sessions for (class, date) for the owning teacher.
func (s *QRSessionService) Sessions(ctx context.Context, teacherID, classID, date string) ([]models.QRSession, error) {
	if err := s.requireOwnership(ctx, classID, teacherID); err != nil {
		return nil, err
	}

	start := time.Now()
	sessions, err := s.repo.ListByClassDate(ctx, classID, date)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("qr_session_list", time.Since(start))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

func (s *QRSessionService) requireOwnership(ctx context.Context, classID, teacherID string) error {
	class, err := s.classes.GetClass(ctx, classID)
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

func (s *QRSessionService) rotationInterval(session *models.QRSession) time.Duration {
	if session.RotationInterval <= 0 {
		return s.defaultRotation
	}
	return time.Duration(session.RotationInterval) * time.Second
}

func (s *QRSessionService) generateCode() (string, error) {
	buf := make([]byte, s.codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("draw code character: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

func (s *QRSessionService) recordScan(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordScan(outcome)
	}
}
