package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttendanceCellFormats(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind CellKind
		want AttendanceCounts
	}{
		{
			name: "bare present code",
			raw:  `"P"`,
			kind: CellBareCode,
			want: AttendanceCounts{Present: 1, Total: 1},
		},
		{
			name: "bare late code",
			raw:  `"L"`,
			kind: CellBareCode,
			want: AttendanceCounts{Late: 1, Total: 1},
		},
		{
			name: "counted legacy with explicit count",
			raw:  `{"status":"A","count":3}`,
			kind: CellCountedLegacy,
			want: AttendanceCounts{Absent: 3, Total: 3},
		},
		{
			name: "counted legacy defaults count to one",
			raw:  `{"status":"P"}`,
			kind: CellCountedLegacy,
			want: AttendanceCounts{Present: 1, Total: 1},
		},
		{
			name: "multi session mixed statuses",
			raw:  `{"sessions":[{"status":"P"},{"status":"L"},{"status":"A"}]}`,
			kind: CellMultiSession,
			want: AttendanceCounts{Present: 1, Absent: 1, Late: 1, Total: 3},
		},
		{
			name: "multi session skips unmarked entries",
			raw:  `{"sessions":[{"status":"P"},{},{"marked_at":"2024-01-15T08:00:00Z"}]}`,
			kind: CellMultiSession,
			want: AttendanceCounts{Present: 1, Total: 1},
		},
		{
			name: "null cell",
			raw:  `null`,
			kind: CellEmpty,
			want: AttendanceCounts{},
		},
		{
			name: "empty object",
			raw:  `{}`,
			kind: CellEmpty,
			want: AttendanceCounts{},
		},
		{
			name: "unknown bare code degrades to empty",
			raw:  `"X"`,
			kind: CellEmpty,
			want: AttendanceCounts{},
		},
		{
			name: "unknown status in counted legacy degrades to empty",
			raw:  `{"status":"Q","count":4}`,
			kind: CellEmpty,
			want: AttendanceCounts{},
		},
		{
			name: "stray number degrades to empty",
			raw:  `42`,
			kind: CellEmpty,
			want: AttendanceCounts{},
		},
		{
			name: "stray array degrades to empty",
			raw:  `["P","A"]`,
			kind: CellEmpty,
			want: AttendanceCounts{},
		},
		{
			name: "corrupted json degrades to empty",
			raw:  `{"sessions":`,
			kind: CellEmpty,
			want: AttendanceCounts{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell := ParseAttendanceCell(json.RawMessage(tt.raw))
			assert.Equal(t, tt.kind, cell.Kind)
			assert.Equal(t, tt.want, cell.Counts())
		})
	}
}

func TestParseAttendanceCellNormalisesAcrossGenerations(t *testing.T) {
	bare := ParseAttendanceCell(json.RawMessage(`"P"`)).Counts()
	counted := ParseAttendanceCell(json.RawMessage(`{"status":"P","count":1}`)).Counts()
	multi := ParseAttendanceCell(json.RawMessage(`{"sessions":[{"status":"P"}]}`)).Counts()

	require.Equal(t, bare, counted)
	require.Equal(t, bare, multi)
	require.Equal(t, AttendanceCounts{Present: 1, Total: 1}, bare)
}

func TestAttendanceCountsPercentage(t *testing.T) {
	counts := AttendanceCounts{Present: 9, Late: 1, Absent: 2, Total: 12}
	assert.InDelta(t, 83.3333, counts.Percentage(), 0.001)

	assert.Zero(t, AttendanceCounts{}.Percentage())
}

func TestAttendanceMapScanValue(t *testing.T) {
	m := AttendanceMap{"2024-01-15": json.RawMessage(`"P"`)}

	value, err := m.Value()
	require.NoError(t, err)

	var decoded AttendanceMap
	require.NoError(t, decoded.Scan(value))
	require.Len(t, decoded, 1)
	assert.JSONEq(t, `"P"`, string(decoded["2024-01-15"]))

	var fromNil AttendanceMap
	require.NoError(t, fromNil.Scan(nil))
	assert.Empty(t, fromNil)
}
