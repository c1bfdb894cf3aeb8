package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/campushub/registration-api/internal/models"
	appErrors "github.com/campushub/registration-api/pkg/errors"
	"github.com/campushub/registration-api/pkg/export"
)

type exportEnrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type exportCourseRepository interface {
	Statistics(ctx context.Context) ([]models.CourseStatistics, error)
}

// ExportFormat identifies a supported export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered bytes with serving metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders enrollment and course reports as CSV or PDF.
type ExportService struct {
	enrollments exportEnrollmentRepository
	courses     exportCourseRepository
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(enrollments exportEnrollmentRepository, courses exportCourseRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		enrollments: enrollments,
		courses:     courses,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// Enrollments exports the enrollment register, honouring the same filters as
// the listing endpoint. The page size is pinned to the export ceiling.
func (s *ExportService) Enrollments(ctx context.Context, filter models.EnrollmentFilter, format ExportFormat) (*ExportResult, error) {
	filter.Page = 1
	filter.PageSize = 100
	var rows []map[string]string
	for {
		enrollments, _, err := s.enrollments.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
		}
		for _, e := range enrollments {
			group := ""
			if e.GroupName != nil {
				group = *e.GroupName
			}
			rows = append(rows, map[string]string{
				"Student":     e.StudentName,
				"Number":      e.StudentNumber,
				"Course Code": e.CourseCode,
				"Course":      e.CourseName,
				"Group":       group,
				"Payment":     string(e.PaymentStatus),
				"Enrolled At": e.CreatedAt.Format("2006-01-02 15:04"),
			})
		}
		if len(enrollments) < filter.PageSize {
			break
		}
		filter.Page++
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Number", "Course Code", "Course", "Group", "Payment", "Enrolled At"},
		Rows:    rows,
	}
	return s.render(dataset, "Enrollment Report", "enrollments", format)
}

// CourseStatistics exports per-course occupancy figures.
func (s *ExportService) CourseStatistics(ctx context.Context, format ExportFormat) (*ExportResult, error) {
	stats, err := s.courses.Statistics(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course statistics")
	}
	rows := make([]map[string]string, 0, len(stats))
	for _, stat := range stats {
		fill := 0.0
		if stat.MaxStudents > 0 {
			fill = float64(stat.EnrolledCount) / float64(stat.MaxStudents) * 100
		}
		rows = append(rows, map[string]string{
			"Code":     stat.Code,
			"Course":   stat.Name,
			"Capacity": strconv.Itoa(stat.MaxStudents),
			"Enrolled": strconv.Itoa(stat.EnrolledCount),
			"Fill %":   fmt.Sprintf("%.1f", fill),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Code", "Course", "Capacity", "Enrolled", "Fill %"},
		Rows:    rows,
	}
	return s.render(dataset, "Course Statistics", "course-statistics", format)
}

func (s *ExportService) render(dataset export.Dataset, title, basename string, format ExportFormat) (*ExportResult, error) {
	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: basename + ".csv"}, nil
	case ExportFormatPDF:
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: basename + ".pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
