package models

import (
	"time"

	"github.com/lib/pq"
)

// QRSessionStatus is the lifecycle state of a rotating-code session.
type QRSessionStatus string

const (
	QRSessionActive    QRSessionStatus = "active"
	QRSessionCompleted QRSessionStatus = "completed"
)

// QRSession is one rotating-code attendance challenge for a (class, date)
// pair. Date is a calendar-day key ("2006-01-02"), not a timestamp; multiple
// sessions on the same day are distinguished by SessionNumber.
type QRSession struct {
	ID               string          `db:"id" json:"id"`
	ClassID          string          `db:"class_id" json:"class_id"`
	TeacherID        string          `db:"teacher_id" json:"teacher_id"`
	Date             string          `db:"date" json:"date"`
	SessionNumber    int             `db:"session_number" json:"session_number"`
	RotationInterval int             `db:"rotation_interval" json:"rotation_interval"`
	CurrentCode      string          `db:"current_code" json:"current_code"`
	CodeGeneratedAt  time.Time       `db:"code_generated_at" json:"code_generated_at"`
	ScannedStudents  pq.StringArray  `db:"scanned_students" json:"scanned_students"`
	Status           QRSessionStatus `db:"status" json:"status"`
	StartedAt        time.Time       `db:"started_at" json:"started_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// Active reports whether the session still accepts redemptions.
func (s *QRSession) Active() bool {
	return s != nil && s.Status == QRSessionActive
}

// HasScanned reports whether the student already redeemed a code this session.
func (s *QRSession) HasScanned(studentID string) bool {
	for _, id := range s.ScannedStudents {
		if id == studentID {
			return true
		}
	}
	return false
}

// CodePayload is the decoded bundle a student submits when scanning. The
// transport (QR image, manual entry) is irrelevant; only these three fields
// are validated.
type CodePayload struct {
	ClassID string `json:"class_id" validate:"required"`
	Date    string `json:"date" validate:"required"`
	Code    string `json:"code" validate:"required"`
}

// StartSessionRequest starts a new rotating-code session.
type StartSessionRequest struct {
	ClassID          string `json:"class_id" validate:"required"`
	Date             string `json:"date" validate:"required,datetime=2006-01-02"`
	RotationInterval int    `json:"rotation_interval" validate:"omitempty,min=1,max=300"`
}

// ScanRequest redeems a code for the authenticated student.
type ScanRequest struct {
	ClassID string      `json:"class_id" validate:"required"`
	Date    string      `json:"date" validate:"required,datetime=2006-01-02"`
	Payload CodePayload `json:"payload" validate:"required"`
}

// RedemptionResult reports the outcome of a scan.
type RedemptionResult struct {
	SessionID      string `json:"session_id"`
	SessionNumber  int    `json:"session_number"`
	AlreadyScanned bool   `json:"already_scanned"`
	ScannedCount   int    `json:"scanned_count"`
}

// StopSummary is the handoff returned when a teacher stops a session.
type StopSummary struct {
	SessionID       string   `json:"session_id"`
	SessionNumber   int      `json:"session_number"`
	ScannedCount    int      `json:"scanned_count"`
	ScannedStudents []string `json:"scanned_students"`
}
