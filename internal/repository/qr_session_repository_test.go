package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/lernova/attendsheets-api/internal/models"
	appErrors "github.com/lernova/attendsheets-api/pkg/errors"
)

func newQRSessionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func qrSessionRows(session models.QRSession) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "class_id", "teacher_id", "date", "session_number", "rotation_interval",
		"current_code", "code_generated_at", "scanned_students", "status", "started_at", "updated_at",
	}).AddRow(
		session.ID, session.ClassID, session.TeacherID, session.Date, session.SessionNumber,
		session.RotationInterval, session.CurrentCode, session.CodeGeneratedAt,
		session.ScannedStudents, session.Status, session.StartedAt, session.UpdatedAt,
	)
}

func TestQRSessionRepositoryCreateAssignsSessionNumber(t *testing.T) {
	db, mock, cleanup := newQRSessionRepoMock(t)
	defer cleanup()
	repo := NewQRSessionRepository(db)

	mock.ExpectQuery(`INSERT INTO qr_sessions`).
		WillReturnRows(sqlmock.NewRows([]string{"session_number"}).AddRow(3))

	session, err := repo.Create(context.Background(), &models.QRSession{
		ClassID:          "class-1",
		TeacherID:        "teacher-1",
		Date:             "2024-01-15",
		RotationInterval: 5,
		CurrentCode:      "ABCD1234",
		CodeGeneratedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Equal(t, 3, session.SessionNumber)
	require.Equal(t, models.QRSessionActive, session.Status)
	require.NotEmpty(t, session.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQRSessionRepositoryCreateConflict(t *testing.T) {
	db, mock, cleanup := newQRSessionRepoMock(t)
	defer cleanup()
	repo := NewQRSessionRepository(db)

	mock.ExpectQuery(`INSERT INTO qr_sessions`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_qr_sessions_active"})

	_, err := repo.Create(context.Background(), &models.QRSession{
		ClassID:   "class-1",
		TeacherID: "teacher-1",
		Date:      "2024-01-15",
	})
	require.ErrorIs(t, err, appErrors.ErrActiveSessionExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQRSessionRepositoryFindActiveNotFound(t *testing.T) {
	db, mock, cleanup := newQRSessionRepoMock(t)
	defer cleanup()
	repo := NewQRSessionRepository(db)

	mock.ExpectQuery(`SELECT .* FROM qr_sessions`).
		WithArgs("class-1", "2024-01-15").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	session, err := repo.FindActive(context.Background(), "class-1", "2024-01-15")
	require.NoError(t, err)
	require.Nil(t, session)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQRSessionRepositoryMutatePersistsChanges(t *testing.T) {
	db, mock, cleanup := newQRSessionRepoMock(t)
	defer cleanup()
	repo := NewQRSessionRepository(db)

	locked := models.QRSession{
		ID:               "sess-1",
		ClassID:          "class-1",
		TeacherID:        "teacher-1",
		Date:             "2024-01-15",
		SessionNumber:    1,
		RotationInterval: 5,
		CurrentCode:      "ABCD1234",
		CodeGeneratedAt:  time.Now().UTC(),
		ScannedStudents:  pq.StringArray{},
		Status:           models.QRSessionActive,
		StartedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM qr_sessions .* FOR UPDATE`).
		WithArgs("class-1", "2024-01-15").
		WillReturnRows(qrSessionRows(locked))
	mock.ExpectExec(`UPDATE qr_sessions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	session, err := repo.Mutate(context.Background(), "class-1", "2024-01-15", func(s *models.QRSession) (bool, error) {
		s.ScannedStudents = append(s.ScannedStudents, "student-1")
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"student-1"}, []string(session.ScannedStudents))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQRSessionRepositoryMutateNoActiveSession(t *testing.T) {
	db, mock, cleanup := newQRSessionRepoMock(t)
	defer cleanup()
	repo := NewQRSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM qr_sessions .* FOR UPDATE`).
		WithArgs("class-1", "2024-01-15").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.Mutate(context.Background(), "class-1", "2024-01-15", func(s *models.QRSession) (bool, error) {
		return false, nil
	})
	require.ErrorIs(t, err, appErrors.ErrNoActiveSession)
	require.NoError(t, mock.ExpectationsWereMet())
}
