package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lernova/attendsheets-api/internal/models"
	appErrors "github.com/lernova/attendsheets-api/pkg/errors"
	"github.com/lernova/attendsheets-api/pkg/export"
)

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type statisticsProvider interface {
	ClassStatistics(ctx context.Context, classID string) (*models.ClassStatistics, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult carries a rendered statistics export.
type ExportResult struct {
	Payload     []byte
	Filename    string
	ContentType string
}

// ExportService renders class statistics as downloadable CSV or PDF tables.
type ExportService struct {
	stats  statisticsProvider
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(stats statisticsProvider, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{stats: stats, csv: csv, pdf: pdf, logger: logger}
}

// ClassStatisticsExport renders the class aggregate in the requested format.
func (s *ExportService) ClassStatisticsExport(ctx context.Context, classID string, format ExportFormat) (*ExportResult, error) {
	stats, err := s.stats.ClassStatistics(ctx, classID)
	if err != nil {
		return nil, err
	}

	dataset := buildStatisticsDataset(stats)
	title := fmt.Sprintf("Attendance Statistics %s", classID)
	timestamp := time.Now().UTC().Format("20060102_150405")

	switch format {
	case ExportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Payload:     payload,
			Filename:    fmt.Sprintf("class_stats_%s_%s.csv", classID, timestamp),
			ContentType: "text/csv",
		}, nil
	case ExportFormatPDF:
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Payload:     payload,
			Filename:    fmt.Sprintf("class_stats_%s_%s.pdf", classID, timestamp),
			ContentType: "application/pdf",
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func buildStatisticsDataset(stats *models.ClassStatistics) export.Dataset {
	headers := []string{"Student ID", "Student Name", "Present", "Absent", "Late", "Total", "Attendance (%)", "Band"}
	rows := make([]map[string]string, 0, len(stats.Students)+1)
	for _, student := range stats.Students {
		rows = append(rows, map[string]string{
			"Student ID":     student.StudentID,
			"Student Name":   student.StudentName,
			"Present":        fmt.Sprintf("%d", student.Counts.Present),
			"Absent":         fmt.Sprintf("%d", student.Counts.Absent),
			"Late":           fmt.Sprintf("%d", student.Counts.Late),
			"Total":          fmt.Sprintf("%d", student.Counts.Total),
			"Attendance (%)": fmt.Sprintf("%.2f", student.Percentage),
			"Band":           string(student.Band),
		})
	}
	rows = append(rows, map[string]string{
		"Student ID":     "TOTAL",
		"Student Name":   "",
		"Present":        fmt.Sprintf("%d", stats.Counts.Present),
		"Absent":         fmt.Sprintf("%d", stats.Counts.Absent),
		"Late":           fmt.Sprintf("%d", stats.Counts.Late),
		"Total":          fmt.Sprintf("%d", stats.Counts.Total),
		"Attendance (%)": fmt.Sprintf("%.2f", stats.AverageAttendance),
		"Band":           "",
	})
	return export.Dataset{Headers: headers, Rows: rows}
}
