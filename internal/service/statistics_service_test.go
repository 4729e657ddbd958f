package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lernova/attendsheets-api/internal/models"
	appErrors "github.com/lernova/attendsheets-api/pkg/errors"
)

type mockStatisticsRoster struct {
	classes map[string]*models.Class
	rosters map[string][]models.RosterEntry
}

func (m *mockStatisticsRoster) GetClass(ctx context.Context, classID string) (*models.Class, error) {
	return m.classes[classID], nil
}

func (m *mockStatisticsRoster) ListRoster(ctx context.Context, classID string) ([]models.RosterEntry, error) {
	return m.rosters[classID], nil
}

func (m *mockStatisticsRoster) GetEntry(ctx context.Context, classID, studentID string) (*models.RosterEntry, error) {
	for _, entry := range m.rosters[classID] {
		if entry.StudentID == studentID {
			copied := entry
			return &copied, nil
		}
	}
	return nil, nil
}

func countedCells(present, absent int) models.AttendanceMap {
	attendance := models.AttendanceMap{}
	if present > 0 {
		attendance["2024-01-01"] = json.RawMessage(
			`{"status":"P","count":` + jsonInt(present) + `}`)
	}
	if absent > 0 {
		attendance["2024-01-02"] = json.RawMessage(
			`{"status":"A","count":` + jsonInt(absent) + `}`)
	}
	return attendance
}

func jsonInt(n int) string {
	data, _ := json.Marshal(n)
	return string(data)
}

func newStatisticsFixture() (*StatisticsService, *mockStatisticsRoster) {
	roster := &mockStatisticsRoster{
		classes: map[string]*models.Class{
			"C1": {ID: "C1", Name: "Physics", TeacherID: "teacher-1"},
		},
		rosters: map[string][]models.RosterEntry{
			"C1": {
				{ClassID: "C1", StudentID: "s1", StudentName: "Alice", Attendance: countedCells(9, 1)},
				{ClassID: "C1", StudentID: "s2", StudentName: "Bob", Attendance: countedCells(5, 5)},
				{ClassID: "C1", StudentID: "s3", StudentName: "Cara", Attendance: countedCells(10, 0)},
			},
		},
	}
	svc := NewStatisticsService(roster, nil, nil, nil, models.DefaultThresholds(), 0)
	return svc, roster
}

func TestClassStatisticsBandsAndAverage(t *testing.T) {
	svc, _ := newStatisticsFixture()

	stats, err := svc.ClassStatistics(context.Background(), "C1")
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalStudents)
	assert.Equal(t, models.AttendanceCounts{Present: 24, Absent: 6, Total: 30}, stats.Counts)
	assert.InDelta(t, 80.0, stats.AverageAttendance, 0.001)
	assert.Equal(t, models.BandCounts{Excellent: 1, Good: 1, AtRisk: 1}, stats.Bands)

	byID := map[string]models.StudentStatistics{}
	for _, s := range stats.Students {
		byID[s.StudentID] = s
	}
	assert.Equal(t, models.BandGood, byID["s1"].Band)
	assert.InDelta(t, 90.0, byID["s1"].Percentage, 0.001)
	assert.Equal(t, models.BandAtRisk, byID["s2"].Band)
	assert.Equal(t, models.BandExcellent, byID["s3"].Band)
}

func TestClassStatisticsExcludesZeroHistoryFromBands(t *testing.T) {
	svc, roster := newStatisticsFixture()
	roster.rosters["C1"] = append(roster.rosters["C1"], models.RosterEntry{
		ClassID: "C1", StudentID: "s4", StudentName: "Dan", Attendance: models.AttendanceMap{},
	})

	stats, err := svc.ClassStatistics(context.Background(), "C1")
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalStudents)
	bands := stats.Bands
	assert.Equal(t, 3, bands.Excellent+bands.Good+bands.Moderate+bands.AtRisk)

	byID := map[string]models.StudentStatistics{}
	for _, s := range stats.Students {
		byID[s.StudentID] = s
	}
	assert.Zero(t, byID["s4"].Percentage)
	assert.Empty(t, byID["s4"].Band)
}

func TestClassStatisticsUsesClassThresholdOverrides(t *testing.T) {
	svc, roster := newStatisticsFixture()
	excellent := 90.0
	roster.classes["C1"].ThresholdExcellent = &excellent

	stats, err := svc.ClassStatistics(context.Background(), "C1")
	require.NoError(t, err)

	// s1 sits exactly on the lowered excellent cutoff.
	assert.Equal(t, 2, stats.Bands.Excellent)
}

func TestClassStatisticsUnknownClass(t *testing.T) {
	svc, _ := newStatisticsFixture()

	_, err := svc.ClassStatistics(context.Background(), "missing")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStudentStatisticsMixedEncodings(t *testing.T) {
	svc, roster := newStatisticsFixture()
	roster.rosters["C1"] = append(roster.rosters["C1"], models.RosterEntry{
		ClassID:   "C1",
		StudentID: "s5",
		Attendance: models.AttendanceMap{
			"2024-01-01": json.RawMessage(`"P"`),
			"2024-01-02": json.RawMessage(`{"status":"L","count":2}`),
			"2024-01-03": json.RawMessage(`{"sessions":[{"status":"P"},{"status":"A"}]}`),
			"2024-01-04": json.RawMessage(`"garbage-value"`),
		},
	})

	stats, err := svc.StudentStatistics(context.Background(), "C1", "s5")
	require.NoError(t, err)

	assert.Equal(t, models.AttendanceCounts{Present: 2, Absent: 1, Late: 2, Total: 5}, stats.Counts)
	assert.InDelta(t, 80.0, stats.Percentage, 0.001)
	assert.Equal(t, models.BandAtRisk, stats.Band)
}

func TestStudentStatisticsNotEnrolled(t *testing.T) {
	svc, _ := newStatisticsFixture()

	_, err := svc.StudentStatistics(context.Background(), "C1", "ghost")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStudentDayStatistics(t *testing.T) {
	svc, _ := newStatisticsFixture()

	stats, err := svc.StudentDayStatistics(context.Background(), "C1", "s1", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceCounts{Present: 9, Total: 9}, stats.Counts)

	stats, err = svc.StudentDayStatistics(context.Background(), "C1", "s1", "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceCounts{}, stats.Counts)
}
