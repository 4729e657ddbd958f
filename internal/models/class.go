package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Class represents a class taught by one teacher. Threshold overrides are
// optional; unset values fall back to the configured defaults.
type Class struct {
	ID                 string    `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	TeacherID          string    `db:"teacher_id" json:"teacher_id"`
	ThresholdExcellent *float64  `db:"threshold_excellent" json:"threshold_excellent,omitempty"`
	ThresholdGood      *float64  `db:"threshold_good" json:"threshold_good,omitempty"`
	ThresholdModerate  *float64  `db:"threshold_moderate" json:"threshold_moderate,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// EffectiveThresholds merges class overrides over the given defaults.
func (c *Class) EffectiveThresholds(defaults Thresholds) Thresholds {
	t := defaults
	if c == nil {
		return t
	}
	if c.ThresholdExcellent != nil {
		t.Excellent = *c.ThresholdExcellent
	}
	if c.ThresholdGood != nil {
		t.Good = *c.ThresholdGood
	}
	if c.ThresholdModerate != nil {
		t.Moderate = *c.ThresholdModerate
	}
	return t
}

// AttendanceMap is the per-student attendance history keyed by date
// ("2006-01-02" → raw cell). Cells stay raw until parsed because three
// encoding generations coexist in stored rosters.
type AttendanceMap map[string]json.RawMessage

// Value implements driver.Valuer for JSONB storage.
func (m AttendanceMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB storage.
func (m *AttendanceMap) Scan(src interface{}) error {
	if src == nil {
		*m = AttendanceMap{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported attendance map source type %T", src)
	}
	if len(data) == 0 {
		*m = AttendanceMap{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// RosterEntry is one enrolled student with their attendance history.
type RosterEntry struct {
	ID          string        `db:"id" json:"id"`
	ClassID     string        `db:"class_id" json:"class_id"`
	StudentID   string        `db:"student_id" json:"student_id"`
	StudentName string        `db:"student_name" json:"student_name"`
	Attendance  AttendanceMap `db:"attendance" json:"attendance"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// UpdateAttendanceRequest writes a multi-session cell for (student, date).
type UpdateAttendanceRequest struct {
	StudentID string        `json:"student_id" validate:"required"`
	Date      string        `json:"date" validate:"required,datetime=2006-01-02"`
	Sessions  []SessionMark `json:"sessions" validate:"required,min=1,dive"`
}
