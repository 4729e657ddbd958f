package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/lernova/attendsheets-api/internal/models"
	appErrors "github.com/lernova/attendsheets-api/pkg/errors"
)

type statisticsRoster interface {
	GetClass(ctx context.Context, classID string) (*models.Class, error)
	ListRoster(ctx context.Context, classID string) ([]models.RosterEntry, error)
	GetEntry(ctx context.Context, classID, studentID string) (*models.RosterEntry, error)
}

// StatisticsService folds parsed attendance cells into class- and
// student-level summaries and classifies students against thresholds.
//
// Classification uses one canonical four-band scheme. Students with no
// attendance history contribute nothing to class totals and are left out of
// the band counts, since absence of data says nothing about attendance.
type StatisticsService struct {
	roster   statisticsRoster
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	defaults models.Thresholds
	cacheTTL time.Duration
}

// NewStatisticsService constructs the service.
func NewStatisticsService(roster statisticsRoster, cache *CacheService, metrics *MetricsService, logger *zap.Logger, defaults models.Thresholds, cacheTTL time.Duration) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults == (models.Thresholds{}) {
		defaults = models.DefaultThresholds()
	}
	return &StatisticsService{
		roster:   roster,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		defaults: defaults,
		cacheTTL: cacheTTL,
	}
}

// ClassStatistics computes the aggregate for a whole class.
func (s *StatisticsService) ClassStatistics(ctx context.Context, classID string) (*models.ClassStatistics, error) {
	cacheKey := classStatsCacheKey(classID)
	if s.cache != nil {
		var cached models.ClassStatistics
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	class, thresholds, err := s.loadThresholds(ctx, classID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	entries, err := s.roster.ListRoster(ctx, classID)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("roster_list", time.Since(start))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	stats := &models.ClassStatistics{
		ClassID:       class.ID,
		TotalStudents: len(entries),
	}
	for _, entry := range entries {
		student := summariseStudent(entry, thresholds)
		stats.Counts.Add(student.Counts)
		if student.Counts.Total > 0 {
			stats.Bands.Bump(student.Band)
		}
		stats.Students = append(stats.Students, student)
	}
	stats.AverageAttendance = round2(stats.Counts.Percentage())

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache class statistics", zap.String("class_id", classID), zap.Error(err))
		}
	}
	return stats, nil
}

// StudentStatistics computes the summary for one enrolled student.
func (s *StatisticsService) StudentStatistics(ctx context.Context, classID, studentID string) (*models.StudentStatistics, error) {
	_, thresholds, err := s.loadThresholds(ctx, classID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	entry, err := s.roster.GetEntry(ctx, classID, studentID)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("roster_get_entry", time.Since(start))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster entry")
	}
	if entry == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in class")
	}

	student := summariseStudent(*entry, thresholds)
	return &student, nil
}

// StudentDayStatistics summarises one student's marks for a single date.
func (s *StatisticsService) StudentDayStatistics(ctx context.Context, classID, studentID, date string) (*models.StudentDayStatistics, error) {
	entry, err := s.roster.GetEntry(ctx, classID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster entry")
	}
	if entry == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in class")
	}

	cell := models.ParseAttendanceCell(entry.Attendance[date])
	return &models.StudentDayStatistics{
		StudentID: studentID,
		Date:      date,
		Counts:    cell.Counts(),
	}, nil
}

// InvalidateClass drops cached statistics after an attendance write. Any
// future writer of class threshold overrides must call this too, since the
// cache key does not carry the thresholds the bands were computed with.
func (s *StatisticsService) InvalidateClass(ctx context.Context, classID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, classStatsCacheKey(classID)); err != nil {
		s.logger.Warn("failed to invalidate class statistics", zap.String("class_id", classID), zap.Error(err))
	}
}

func (s *StatisticsService) loadThresholds(ctx context.Context, classID string) (*models.Class, models.Thresholds, error) {
	class, err := s.roster.GetClass(ctx, classID)
	if err != nil {
		return nil, models.Thresholds{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if class == nil {
		return nil, models.Thresholds{}, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return class, class.EffectiveThresholds(s.defaults), nil
}

func summariseStudent(entry models.RosterEntry, thresholds models.Thresholds) models.StudentStatistics {
	var counts models.AttendanceCounts
	for _, raw := range entry.Attendance {
		counts.Add(models.ParseAttendanceCell(raw).Counts())
	}

	student := models.StudentStatistics{
		StudentID:   entry.StudentID,
		StudentName: entry.StudentName,
		Counts:      counts,
	}
	if counts.Total > 0 {
		percentage := counts.Percentage()
		student.Percentage = round2(percentage)
		student.Band = models.ClassifyAttendance(percentage, thresholds)
	}
	return student
}

func classStatsCacheKey(classID string) string {
	return fmt.Sprintf("stats:class:%s", classID)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
