package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/registration-api/internal/models"
)

type fakeExportEnrollments struct {
	enrollments []models.EnrollmentDetail
}

func (f *fakeExportEnrollments) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	if filter.Page > 1 {
		return nil, len(f.enrollments), nil
	}
	return f.enrollments, len(f.enrollments), nil
}

type fakeExportCourses struct{}

func (f *fakeExportCourses) Statistics(ctx context.Context) ([]models.CourseStatistics, error) {
	return []models.CourseStatistics{
		{Code: "CS101", Name: "Intro", MaxStudents: 30, EnrolledCount: 15},
	}, nil
}

func newExportFixture() *ExportService {
	group := "A"
	enrollments := &fakeExportEnrollments{enrollments: []models.EnrollmentDetail{
		{
			Enrollment: models.Enrollment{
				ID:            "enr-1",
				PaymentStatus: models.PaymentStatusUnpaid,
				CreatedAt:     time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC),
			},
			StudentName:   "Sara Ahmed",
			StudentNumber: "1001",
			CourseCode:    "CS101",
			CourseName:    "Intro",
			GroupName:     &group,
		},
	}}
	return NewExportService(enrollments, &fakeExportCourses{}, nil)
}

func TestExportEnrollmentsCSV(t *testing.T) {
	svc := newExportFixture()

	result, err := svc.Enrollments(context.Background(), models.EnrollmentFilter{}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "enrollments.csv", result.Filename)
	body := string(result.Content)
	assert.True(t, strings.HasPrefix(body, "Student,Number,Course Code"))
	assert.Contains(t, body, "Sara Ahmed,1001,CS101,Intro,A,UNPAID,2026-02-10 09:30")
}

func TestExportEnrollmentsPDF(t *testing.T) {
	svc := newExportFixture()

	result, err := svc.Enrollments(context.Background(), models.EnrollmentFilter{}, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Content), "%PDF"))
}

func TestExportCourseStatisticsCSV(t *testing.T) {
	svc := newExportFixture()

	result, err := svc.CourseStatistics(context.Background(), ExportFormatCSV)
	require.NoError(t, err)
	assert.Contains(t, string(result.Content), "CS101,Intro,30,15,50.0")
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := newExportFixture()

	_, err := svc.Enrollments(context.Background(), models.EnrollmentFilter{}, "xlsx")
	require.Error(t, err)
}
