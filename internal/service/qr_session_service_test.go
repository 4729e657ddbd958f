package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lernova/attendsheets-api/internal/models"
	"github.com/lernova/attendsheets-api/pkg/config"
	appErrors "github.com/lernova/attendsheets-api/pkg/errors"
)

type mockQRSessionRepo struct {
	sessions []models.QRSession
}

func (m *mockQRSessionRepo) key(classID, date string) int {
	for i := range m.sessions {
		s := &m.sessions[i]
		if s.ClassID == classID && s.Date == date && s.Status == models.QRSessionActive {
			return i
		}
	}
	return -1
}

func (m *mockQRSessionRepo) Create(ctx context.Context, session *models.QRSession) (*models.QRSession, error) {
	if m.key(session.ClassID, session.Date) >= 0 {
		return nil, appErrors.ErrActiveSessionExists
	}
	count := 0
	for _, s := range m.sessions {
		if s.ClassID == session.ClassID && s.Date == session.Date {
			count++
		}
	}
	session.ID = fmt.Sprintf("sess-%d", len(m.sessions)+1)
	session.SessionNumber = count + 1
	session.Status = models.QRSessionActive
	m.sessions = append(m.sessions, *session)
	return session, nil
}

func (m *mockQRSessionRepo) FindActive(ctx context.Context, classID, date string) (*models.QRSession, error) {
	if i := m.key(classID, date); i >= 0 {
		copied := m.sessions[i]
		return &copied, nil
	}
	return nil, nil
}

func (m *mockQRSessionRepo) Mutate(ctx context.Context, classID, date string, fn func(*models.QRSession) (bool, error)) (*models.QRSession, error) {
	i := m.key(classID, date)
	if i < 0 {
		return nil, appErrors.ErrNoActiveSession
	}
	copied := m.sessions[i]
	dirty, err := fn(&copied)
	if err != nil {
		return nil, err
	}
	if dirty {
		m.sessions[i] = copied
	}
	return &copied, nil
}

func (m *mockQRSessionRepo) ListByClassDate(ctx context.Context, classID, date string) ([]models.QRSession, error) {
	var out []models.QRSession
	for _, s := range m.sessions {
		if s.ClassID == classID && s.Date == date {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockClassReader struct {
	classes map[string]*models.Class
}

func (m *mockClassReader) GetClass(ctx context.Context, classID string) (*models.Class, error) {
	return m.classes[classID], nil
}

func newQRServiceFixture() (*QRSessionService, *mockQRSessionRepo, *time.Time) {
	repo := &mockQRSessionRepo{}
	classes := &mockClassReader{classes: map[string]*models.Class{
		"C1": {ID: "C1", Name: "Physics", TeacherID: "teacher-1"},
	}}
	svc := NewQRSessionService(repo, classes, nil, nil, nil, config.QRConfig{
		DefaultRotationInterval: 5 * time.Second,
		CodeLength:              8,
	})
	current := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }
	return svc, repo, &current
}

func startRequest() models.StartSessionRequest {
	return models.StartSessionRequest{ClassID: "C1", Date: "2024-01-15", RotationInterval: 5}
}

func scanRequest(code string) models.ScanRequest {
	return models.ScanRequest{
		ClassID: "C1",
		Date:    "2024-01-15",
		Payload: models.CodePayload{ClassID: "C1", Date: "2024-01-15", Code: code},
	}
}

func TestQRSessionStartRejectsDuplicateActive(t *testing.T) {
	svc, _, _ := newQRServiceFixture()

	first, err := svc.Start(context.Background(), "teacher-1", startRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, first.SessionNumber)
	assert.Len(t, first.CurrentCode, 8)

	_, err = svc.Start(context.Background(), "teacher-1", startRequest())
	require.ErrorIs(t, err, appErrors.ErrActiveSessionExists)
}

func TestQRSessionStartChecksOwnership(t *testing.T) {
	svc, _, _ := newQRServiceFixture()

	_, err := svc.Start(context.Background(), "teacher-2", startRequest())
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	_, err = svc.Start(context.Background(), "teacher-1", models.StartSessionRequest{
		ClassID: "missing", Date: "2024-01-15",
	})
	appErr = appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestQRSessionSessionNumberIncrementsAcrossRuns(t *testing.T) {
	svc, _, _ := newQRServiceFixture()
	ctx := context.Background()

	_, err := svc.Start(ctx, "teacher-1", startRequest())
	require.NoError(t, err)
	_, err = svc.Stop(ctx, "teacher-1", "C1", "2024-01-15")
	require.NoError(t, err)

	second, err := svc.Start(ctx, "teacher-1", startRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, second.SessionNumber)
}

func TestQRSessionGetRotatesOnlyPastInterval(t *testing.T) {
	svc, _, now := newQRServiceFixture()
	ctx := context.Background()

	started, err := svc.Start(ctx, "teacher-1", startRequest())
	require.NoError(t, err)
	code := started.CurrentCode

	*now = now.Add(4 * time.Second)
	got, err := svc.Get(ctx, "C1", "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, code, got.CurrentCode)

	*now = now.Add(1 * time.Second)
	got, err = svc.Get(ctx, "C1", "2024-01-15")
	require.NoError(t, err)
	assert.NotEqual(t, code, got.CurrentCode)
	assert.Equal(t, *now, got.CodeGeneratedAt)

	rotated := got.CurrentCode
	got, err = svc.Get(ctx, "C1", "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, rotated, got.CurrentCode)
}

func TestQRSessionGetNoActiveSession(t *testing.T) {
	svc, _, _ := newQRServiceFixture()

	_, err := svc.Get(context.Background(), "C1", "2024-01-15")
	require.ErrorIs(t, err, appErrors.ErrNoActiveSession)
}

func TestQRSessionScanIsIdempotentPerStudent(t *testing.T) {
	svc, repo, _ := newQRServiceFixture()
	ctx := context.Background()

	started, err := svc.Start(ctx, "teacher-1", startRequest())
	require.NoError(t, err)

	first, err := svc.Scan(ctx, "student-1", scanRequest(started.CurrentCode))
	require.NoError(t, err)
	assert.False(t, first.AlreadyScanned)
	assert.Equal(t, 1, first.ScannedCount)

	second, err := svc.Scan(ctx, "student-1", scanRequest(started.CurrentCode))
	require.NoError(t, err)
	assert.True(t, second.AlreadyScanned)
	assert.Equal(t, 1, second.ScannedCount)

	session, err := repo.FindActive(ctx, "C1", "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, []string{"student-1"}, []string(session.ScannedStudents))
}

func TestQRSessionScanRejectsWrongClass(t *testing.T) {
	svc, _, _ := newQRServiceFixture()
	ctx := context.Background()

	started, err := svc.Start(ctx, "teacher-1", startRequest())
	require.NoError(t, err)

	req := scanRequest(started.CurrentCode)
	req.Payload.ClassID = "C2"
	_, err = svc.Scan(ctx, "student-1", req)
	require.ErrorIs(t, err, appErrors.ErrWrongClass)
}

func TestQRSessionScanRejectsInvalidCode(t *testing.T) {
	svc, _, _ := newQRServiceFixture()
	ctx := context.Background()

	_, err := svc.Start(ctx, "teacher-1", startRequest())
	require.NoError(t, err)

	_, err = svc.Scan(ctx, "student-1", scanRequest("WRONGCODE"))
	require.ErrorIs(t, err, appErrors.ErrInvalidCode)
}

func TestQRSessionScanRejectsStaleCode(t *testing.T) {
	svc, _, now := newQRServiceFixture()
	ctx := context.Background()

	started, err := svc.Start(ctx, "teacher-1", startRequest())
	require.NoError(t, err)

	*now = now.Add(5 * time.Second)
	_, err = svc.Scan(ctx, "student-1", scanRequest(started.CurrentCode))
	require.ErrorIs(t, err, appErrors.ErrInvalidCode)
}

func TestQRSessionStopRequiresOwnership(t *testing.T) {
	svc, _, _ := newQRServiceFixture()
	ctx := context.Background()

	_, err := svc.Start(ctx, "teacher-1", startRequest())
	require.NoError(t, err)

	_, err = svc.Stop(ctx, "teacher-2", "C1", "2024-01-15")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	session, err := svc.Get(ctx, "C1", "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, models.QRSessionActive, session.Status)
}

func TestQRSessionLifecycle(t *testing.T) {
	svc, _, now := newQRServiceFixture()
	ctx := context.Background()

	started, err := svc.Start(ctx, "teacher-1", startRequest())
	require.NoError(t, err)
	firstCode := started.CurrentCode

	*now = now.Add(2 * time.Second)
	_, err = svc.Scan(ctx, "student-a", scanRequest(firstCode))
	require.NoError(t, err)

	*now = now.Add(4 * time.Second)
	rotated, err := svc.Get(ctx, "C1", "2024-01-15")
	require.NoError(t, err)
	require.NotEqual(t, firstCode, rotated.CurrentCode)

	_, err = svc.Scan(ctx, "student-b", scanRequest(firstCode))
	require.ErrorIs(t, err, appErrors.ErrInvalidCode)

	result, err := svc.Scan(ctx, "student-b", scanRequest(rotated.CurrentCode))
	require.NoError(t, err)
	assert.Equal(t, 2, result.ScannedCount)

	summary, err := svc.Stop(ctx, "teacher-1", "C1", "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ScannedCount)
	assert.ElementsMatch(t, []string{"student-a", "student-b"}, summary.ScannedStudents)

	_, err = svc.Scan(ctx, "student-c", scanRequest(rotated.CurrentCode))
	require.ErrorIs(t, err, appErrors.ErrNoActiveSession)
}
