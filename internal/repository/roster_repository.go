package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lernova/attendsheets-api/internal/models"
)

// RosterRepository handles persistence for classes and their enrolled
// students. Attendance history lives in a JSONB map on the roster row keyed
// by date; cells are written as the current multi-session shape but read raw,
// since older rows still carry the two legacy encodings.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// GetClass returns a class by id, or nil when it does not exist.
func (r *RosterRepository) GetClass(ctx context.Context, classID string) (*models.Class, error) {
	query := `SELECT id, name, teacher_id, threshold_excellent, threshold_good, threshold_moderate, created_at, updated_at
FROM classes WHERE id = $1`

	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get class: %w", err)
	}
	return &class, nil
}

// ListClassesByTeacher returns the classes owned by a teacher.
func (r *RosterRepository) ListClassesByTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	query := `SELECT id, name, teacher_id, threshold_excellent, threshold_good, threshold_moderate, created_at, updated_at
FROM classes WHERE teacher_id = $1 ORDER BY name ASC`

	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, teacherID); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// ListRoster returns all enrolled students for a class with their attendance
// history.
func (r *RosterRepository) ListRoster(ctx context.Context, classID string) ([]models.RosterEntry, error) {
	query := `SELECT id, class_id, student_id, student_name, attendance, created_at, updated_at
FROM class_students WHERE class_id = $1 ORDER BY student_name ASC`

	var entries []models.RosterEntry
	if err := r.db.SelectContext(ctx, &entries, query, classID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return entries, nil
}

// GetEntry returns one student's roster row, or nil when not enrolled.
func (r *RosterRepository) GetEntry(ctx context.Context, classID, studentID string) (*models.RosterEntry, error) {
	query := `SELECT id, class_id, student_id, student_name, attendance, created_at, updated_at
FROM class_students WHERE class_id = $1 AND student_id = $2`

	var entry models.RosterEntry
	if err := r.db.GetContext(ctx, &entry, query, classID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get roster entry: %w", err)
	}
	return &entry, nil
}

// SetAttendanceCell overwrites the cell for (class, student, date).
func (r *RosterRepository) SetAttendanceCell(ctx context.Context, classID, studentID, date string, cell json.RawMessage) error {
	query := `UPDATE class_students
SET attendance = jsonb_set(COALESCE(attendance, '{}'::jsonb), ARRAY[$3], $4::jsonb, true), updated_at = $5
WHERE class_id = $1 AND student_id = $2`

	result, err := r.db.ExecContext(ctx, query, classID, studentID, date, []byte(cell), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set attendance cell: %w", err)
	}
	return requireRowAffected(result, "set attendance cell")
}

// SetAttendanceCellIfAbsent writes the cell only when the date has no mark
// yet. Returns true when the write happened. Used by the stop handoff so a
// manually corrected cell is never clobbered.
func (r *RosterRepository) SetAttendanceCellIfAbsent(ctx context.Context, classID, studentID, date string, cell json.RawMessage) (bool, error) {
	query := `UPDATE class_students
SET attendance = jsonb_set(COALESCE(attendance, '{}'::jsonb), ARRAY[$3], $4::jsonb, true), updated_at = $5
WHERE class_id = $1 AND student_id = $2 AND NOT (COALESCE(attendance, '{}'::jsonb) ? $3)`

	result, err := r.db.ExecContext(ctx, query, classID, studentID, date, []byte(cell), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("set attendance cell if absent: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set attendance cell if absent: rows affected: %w", err)
	}
	return affected > 0, nil
}

// AppendSessionMark appends one session entry to the cell for
// (class, student, date) under a row lock. Legacy cells are expanded to the
// multi-session shape first so their counts carry forward unchanged.
func (r *RosterRepository) AppendSessionMark(ctx context.Context, classID, studentID, date string, mark models.SessionMark) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin roster tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT id, class_id, student_id, student_name, attendance, created_at, updated_at
FROM class_students WHERE class_id = $1 AND student_id = $2 FOR UPDATE`

	var entry models.RosterEntry
	if err := tx.GetContext(ctx, &entry, query, classID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("append session mark: student %s not enrolled in class %s", studentID, classID)
		}
		return fmt.Errorf("lock roster entry: %w", err)
	}

	cell := models.ParseAttendanceCell(entry.Attendance[date])
	value := models.MultiSessionValue{
		Sessions:  append(cell.ToSessionMarks(), mark),
		UpdatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal attendance cell: %w", err)
	}

	update := `UPDATE class_students
SET attendance = jsonb_set(COALESCE(attendance, '{}'::jsonb), ARRAY[$3], $4::jsonb, true), updated_at = $5
WHERE class_id = $1 AND student_id = $2`
	if _, err := tx.ExecContext(ctx, update, classID, studentID, date, payload, value.UpdatedAt); err != nil {
		return fmt.Errorf("append session mark: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster tx: %w", err)
	}
	return nil
}

func requireRowAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: no matching roster entry", op)
	}
	return nil
}
