package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lernova/attendsheets-api/internal/models"
	appErrors "github.com/lernova/attendsheets-api/pkg/errors"
)

const qrSessionColumns = `id, class_id, teacher_id, date, session_number, rotation_interval,
current_code, code_generated_at, scanned_students, status, started_at, updated_at`

// QRSessionRepository handles persistence for rotating-code sessions.
//
// At most one active session may exist per (class_id, date); the table
// enforces this with a partial unique index on (class_id, date) WHERE
// status = 'active'. All read-modify-write paths go through Mutate, which
// locks the active row for the duration of the transaction.
type QRSessionRepository struct {
	db *sqlx.DB
}

// NewQRSessionRepository constructs the repository.
func NewQRSessionRepository(db *sqlx.DB) *QRSessionRepository {
	return &QRSessionRepository{db: db}
}

// Create inserts a new active session. The session number is computed inside
// the INSERT as the count of all sessions, active or completed, for the same
// class and date plus one. A concurrent duplicate start trips the partial
// unique index and surfaces as ErrActiveSessionExists.
func (r *QRSessionRepository) Create(ctx context.Context, session *models.QRSession) (*models.QRSession, error) {
	now := time.Now().UTC()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = now
	}
	session.UpdatedAt = now
	session.Status = models.QRSessionActive
	if session.ScannedStudents == nil {
		session.ScannedStudents = pq.StringArray{}
	}

	query := `INSERT INTO qr_sessions (id, class_id, teacher_id, date, session_number, rotation_interval,
current_code, code_generated_at, scanned_students, status, started_at, updated_at)
VALUES ($1, $2, $3, $4,
        (SELECT COUNT(*) + 1 FROM qr_sessions WHERE class_id = $2 AND date = $4),
        $5, $6, $7, $8, $9, $10, $11)
RETURNING session_number`

	err := r.db.GetContext(ctx, &session.SessionNumber, query,
		session.ID,
		session.ClassID,
		session.TeacherID,
		session.Date,
		session.RotationInterval,
		session.CurrentCode,
		session.CodeGeneratedAt,
		session.ScannedStudents,
		session.Status,
		session.StartedAt,
		session.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, appErrors.ErrActiveSessionExists
		}
		return nil, fmt.Errorf("create qr session: %w", err)
	}
	return session, nil
}

// FindActive returns the active session for (class_id, date), or nil when
// none exists.
func (r *QRSessionRepository) FindActive(ctx context.Context, classID, date string) (*models.QRSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM qr_sessions
WHERE class_id = $1 AND date = $2 AND status = 'active'`, qrSessionColumns)

	var session models.QRSession
	if err := r.db.GetContext(ctx, &session, query, classID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active qr session: %w", err)
	}
	return &session, nil
}

// Mutate runs fn against the active session for (class_id, date) inside a
// transaction holding a row lock, and persists the mutable fields when fn
// reports a change. Returns ErrNoActiveSession when no active row exists.
//
// The lock serialises concurrent scans and rotation checks: fn re-evaluates
// its condition against the locked row, so two gets racing a rotation
// boundary produce a single new code and two scans for the same student
// record exactly one entry.
func (r *QRSessionRepository) Mutate(ctx context.Context, classID, date string, fn func(*models.QRSession) (bool, error)) (*models.QRSession, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin qr session tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`SELECT %s FROM qr_sessions
WHERE class_id = $1 AND date = $2 AND status = 'active'
FOR UPDATE`, qrSessionColumns)

	var session models.QRSession
	if err := tx.GetContext(ctx, &session, query, classID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNoActiveSession
		}
		return nil, fmt.Errorf("lock qr session: %w", err)
	}

	dirty, err := fn(&session)
	if err != nil {
		return nil, err
	}

	if dirty {
		session.UpdatedAt = time.Now().UTC()
		update := `UPDATE qr_sessions
SET current_code = $1, code_generated_at = $2, scanned_students = $3, status = $4, updated_at = $5
WHERE id = $6`
		if _, err := tx.ExecContext(ctx, update,
			session.CurrentCode,
			session.CodeGeneratedAt,
			session.ScannedStudents,
			session.Status,
			session.UpdatedAt,
			session.ID,
		); err != nil {
			return nil, fmt.Errorf("update qr session: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit qr session tx: %w", err)
	}
	return &session, nil
}

// ListByClassDate returns all sessions for (class_id, date) ordered by
// session number.
func (r *QRSessionRepository) ListByClassDate(ctx context.Context, classID, date string) ([]models.QRSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM qr_sessions
WHERE class_id = $1 AND date = $2
ORDER BY session_number ASC`, qrSessionColumns)

	var sessions []models.QRSession
	if err := r.db.SelectContext(ctx, &sessions, query, classID, date); err != nil {
		return nil, fmt.Errorf("list qr sessions: %w", err)
	}
	return sessions, nil
}
