package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// AttendanceStatus represents a single attendance mark.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "P"
	AttendanceStatusAbsent  AttendanceStatus = "A"
	AttendanceStatusLate    AttendanceStatus = "L"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// CellKind identifies which generation of the cell encoding was recognised.
type CellKind string

const (
	CellEmpty         CellKind = "empty"
	CellMultiSession  CellKind = "multi_session"
	CellCountedLegacy CellKind = "counted_legacy"
	CellBareCode      CellKind = "bare_code"
)

// SessionMark is one entry of a multi-session cell. Status may be unset for
// sessions that were opened but never marked.
type SessionMark struct {
	Status   AttendanceStatus `json:"status,omitempty"`
	MarkedAt *time.Time       `json:"marked_at,omitempty"`
	Method   string           `json:"method,omitempty"`
}

// MultiSessionValue is the current-generation cell shape written for new marks.
type MultiSessionValue struct {
	Sessions  []SessionMark `json:"sessions"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// AttendanceCell is the tagged union over the three historical cell encodings.
// Exactly one variant is populated, selected by Kind.
type AttendanceCell struct {
	Kind     CellKind
	Sessions []SessionMark
	Status   AttendanceStatus
	Count    int
}

// AttendanceCounts is the normalised view of one cell.
type AttendanceCounts struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Total   int `json:"total"`
}

// Add accumulates another count record into the receiver.
func (c *AttendanceCounts) Add(other AttendanceCounts) {
	c.Present += other.Present
	c.Absent += other.Absent
	c.Late += other.Late
	c.Total += other.Total
}

// Percentage returns the attendance credit ratio. Late counts toward credit,
// absent does not.
func (c AttendanceCounts) Percentage() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Present+c.Late) / float64(c.Total) * 100
}

// ParseAttendanceCell interprets a raw roster cell in any of the three
// historical encodings. Dispatch is ordered and the first matching shape wins:
// empty value, multi-session object, counted-legacy object, bare status code.
// Anything unrecognised degrades to an empty cell rather than failing, since
// historic rosters contain stray values that cannot be fixed retroactively.
func ParseAttendanceCell(raw json.RawMessage) AttendanceCell {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return AttendanceCell{Kind: CellEmpty}
	}

	switch trimmed[0] {
	case '{':
		return parseObjectCell(trimmed)
	case '"':
		var code string
		if err := json.Unmarshal(trimmed, &code); err != nil {
			return AttendanceCell{Kind: CellEmpty}
		}
		status := AttendanceStatus(code)
		if !status.Valid() {
			return AttendanceCell{Kind: CellEmpty}
		}
		return AttendanceCell{Kind: CellBareCode, Status: status}
	default:
		return AttendanceCell{Kind: CellEmpty}
	}
}

func parseObjectCell(trimmed []byte) AttendanceCell {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return AttendanceCell{Kind: CellEmpty}
	}
	if len(fields) == 0 {
		return AttendanceCell{Kind: CellEmpty}
	}

	if sessionsRaw, ok := fields["sessions"]; ok {
		var sessions []SessionMark
		if err := json.Unmarshal(sessionsRaw, &sessions); err != nil {
			return AttendanceCell{Kind: CellEmpty}
		}
		return AttendanceCell{Kind: CellMultiSession, Sessions: sessions}
	}

	if statusRaw, ok := fields["status"]; ok {
		var code string
		if err := json.Unmarshal(statusRaw, &code); err != nil {
			return AttendanceCell{Kind: CellEmpty}
		}
		status := AttendanceStatus(code)
		if !status.Valid() {
			return AttendanceCell{Kind: CellEmpty}
		}
		count := 1
		if countRaw, ok := fields["count"]; ok {
			var n int
			if err := json.Unmarshal(countRaw, &n); err == nil && n > 0 {
				count = n
			}
		}
		return AttendanceCell{Kind: CellCountedLegacy, Status: status, Count: count}
	}

	return AttendanceCell{Kind: CellEmpty}
}

// Counts folds the cell into the normalised count record. Multi-session
// entries without a valid status are skipped and do not count toward total.
func (c AttendanceCell) Counts() AttendanceCounts {
	var counts AttendanceCounts

	switch c.Kind {
	case CellMultiSession:
		for _, session := range c.Sessions {
			if !session.Status.Valid() {
				continue
			}
			counts.Total++
			counts.bump(session.Status, 1)
		}
	case CellCountedLegacy:
		counts.Total += c.Count
		counts.bump(c.Status, c.Count)
	case CellBareCode:
		counts.Total++
		counts.bump(c.Status, 1)
	}

	return counts
}

// ToSessionMarks expands the cell into session entries so that legacy cells
// can be carried forward when a new mark is appended. Counted-legacy cells
// expand to Count identical entries; counts are preserved exactly.
func (c AttendanceCell) ToSessionMarks() []SessionMark {
	switch c.Kind {
	case CellMultiSession:
		return c.Sessions
	case CellCountedLegacy:
		marks := make([]SessionMark, c.Count)
		for i := range marks {
			marks[i] = SessionMark{Status: c.Status}
		}
		return marks
	case CellBareCode:
		return []SessionMark{{Status: c.Status}}
	default:
		return nil
	}
}

func (c *AttendanceCounts) bump(status AttendanceStatus, n int) {
	switch status {
	case AttendanceStatusPresent:
		c.Present += n
	case AttendanceStatusAbsent:
		c.Absent += n
	case AttendanceStatusLate:
		c.Late += n
	}
}
