package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/registration-api/internal/models"
)

type fakeAdminEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	statuses    map[string]models.PaymentStatus
	deleted     []string
	resetCount  int64
}

func (f *fakeAdminEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return []models.EnrollmentDetail{}, 7, nil
}

func (f *fakeAdminEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := f.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAdminEnrollmentRepo) Delete(ctx context.Context, id string) error {
	delete(f.enrollments, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAdminEnrollmentRepo) DeleteByStudent(ctx context.Context, studentID string) (int64, error) {
	var removed int64
	for id, e := range f.enrollments {
		if e.StudentID == studentID {
			delete(f.enrollments, id)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeAdminEnrollmentRepo) DeleteAll(ctx context.Context) (int64, error) {
	return f.resetCount, nil
}

func (f *fakeAdminEnrollmentRepo) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	if _, ok := f.enrollments[id]; !ok {
		return sql.ErrNoRows
	}
	if f.statuses == nil {
		f.statuses = map[string]models.PaymentStatus{}
	}
	f.statuses[id] = status
	return nil
}

func newAdminEnrollmentFixture() (*EnrollmentService, *fakeAdminEnrollmentRepo) {
	repo := &fakeAdminEnrollmentRepo{
		enrollments: map[string]models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: "stu-1", CourseID: "course-1", PaymentStatus: models.PaymentStatusUnpaid},
		},
		resetCount: 12,
	}
	return NewEnrollmentService(repo, nil, nil), repo
}

func TestEnrollmentServiceUpdatePayment(t *testing.T) {
	svc, repo := newAdminEnrollmentFixture()

	err := svc.UpdatePayment(context.Background(), "enr-1", UpdatePaymentRequest{PaymentStatus: models.PaymentStatusPaid})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, repo.statuses["enr-1"])
}

func TestEnrollmentServiceUpdatePaymentInvalidStatus(t *testing.T) {
	svc, _ := newAdminEnrollmentFixture()

	err := svc.UpdatePayment(context.Background(), "enr-1", UpdatePaymentRequest{PaymentStatus: "REFUNDED"})
	require.Error(t, err)
}

func TestEnrollmentServiceUpdatePaymentMissing(t *testing.T) {
	svc, _ := newAdminEnrollmentFixture()

	err := svc.UpdatePayment(context.Background(), "enr-gone", UpdatePaymentRequest{PaymentStatus: models.PaymentStatusPaid})
	require.Error(t, err)
}

func TestEnrollmentServiceDelete(t *testing.T) {
	svc, repo := newAdminEnrollmentFixture()

	require.NoError(t, svc.Delete(context.Background(), "enr-1"))
	assert.Equal(t, []string{"enr-1"}, repo.deleted)

	require.Error(t, svc.Delete(context.Background(), "enr-1"))
}

func TestEnrollmentServiceResetAll(t *testing.T) {
	svc, _ := newAdminEnrollmentFixture()

	removed, err := svc.ResetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), removed)
}

func TestEnrollmentServiceListPagination(t *testing.T) {
	svc, _ := newAdminEnrollmentFixture()

	_, pagination, err := svc.List(context.Background(), models.EnrollmentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 7, pagination.TotalCount)
}

func TestEnrollmentServiceResetStudent(t *testing.T) {
	svc, repo := newAdminEnrollmentFixture()
	repo.enrollments["enr-2"] = models.Enrollment{ID: "enr-2", StudentID: "stu-2", CourseID: "course-1"}

	removed, err := svc.ResetStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.NotContains(t, repo.enrollments, "enr-1")
	assert.Contains(t, repo.enrollments, "enr-2")
}
