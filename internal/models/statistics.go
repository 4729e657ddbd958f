package models

// Thresholds holds the percentage cutoffs used to classify attendance
// standing. Values are percentages in [0,100].
type Thresholds struct {
	Excellent float64 `json:"excellent"`
	Good      float64 `json:"good"`
	Moderate  float64 `json:"moderate"`
}

// DefaultThresholds returns the product defaults used when a class has no
// overrides configured.
func DefaultThresholds() Thresholds {
	return Thresholds{Excellent: 95, Good: 90, Moderate: 85}
}

// AttendanceBand is the canonical four-band classification of a student's
// attendance percentage.
type AttendanceBand string

const (
	BandExcellent AttendanceBand = "excellent"
	BandGood      AttendanceBand = "good"
	BandModerate  AttendanceBand = "moderate"
	BandAtRisk    AttendanceBand = "at-risk"
)

// ClassifyAttendance maps a percentage to its band.
func ClassifyAttendance(percentage float64, t Thresholds) AttendanceBand {
	switch {
	case percentage >= t.Excellent:
		return BandExcellent
	case percentage >= t.Good:
		return BandGood
	case percentage >= t.Moderate:
		return BandModerate
	default:
		return BandAtRisk
	}
}

// BandCounts tallies students per band.
type BandCounts struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Moderate  int `json:"moderate"`
	AtRisk    int `json:"at_risk"`
}

// Bump increments the counter for the given band.
func (b *BandCounts) Bump(band AttendanceBand) {
	switch band {
	case BandExcellent:
		b.Excellent++
	case BandGood:
		b.Good++
	case BandModerate:
		b.Moderate++
	case BandAtRisk:
		b.AtRisk++
	}
}

// StudentStatistics is the derived summary for one student. Percentage is
// rounded to two decimals for display; accumulation is unrounded.
type StudentStatistics struct {
	StudentID   string           `json:"student_id"`
	StudentName string           `json:"student_name,omitempty"`
	Counts      AttendanceCounts `json:"counts"`
	Percentage  float64          `json:"percentage"`
	Band        AttendanceBand   `json:"band,omitempty"`
}

// ClassStatistics is the derived class-level aggregate. Students with zero
// attendance history are excluded from band counts.
type ClassStatistics struct {
	ClassID           string              `json:"class_id"`
	TotalStudents     int                 `json:"total_students"`
	Counts            AttendanceCounts    `json:"counts"`
	AverageAttendance float64             `json:"average_attendance"`
	Bands             BandCounts          `json:"bands"`
	Students          []StudentStatistics `json:"students,omitempty"`
}

// StudentDayStatistics summarises a single student's marks for one date.
type StudentDayStatistics struct {
	StudentID string           `json:"student_id"`
	Date      string           `json:"date"`
	Counts    AttendanceCounts `json:"counts"`
}
