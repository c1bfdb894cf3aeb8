package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/registration-api/internal/models"
	"github.com/campushub/registration-api/internal/service"
	appErrors "github.com/campushub/registration-api/pkg/errors"
)

type enrollmentServiceMock struct {
	listResp      []models.EnrollmentDetail
	lastFilter    models.EnrollmentFilter
	paymentErr    error
	lastPaymentID string
	deleteErr     error
	resetResp     int64
}

func (m *enrollmentServiceMock) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(m.listResp)}, nil
}

func (m *enrollmentServiceMock) UpdatePayment(ctx context.Context, id string, req service.UpdatePaymentRequest) error {
	m.lastPaymentID = id
	return m.paymentErr
}

func (m *enrollmentServiceMock) Delete(ctx context.Context, id string) error {
	return m.deleteErr
}

func (m *enrollmentServiceMock) ResetStudent(ctx context.Context, studentID string) (int64, error) {
	return m.resetResp, nil
}

func (m *enrollmentServiceMock) ResetAll(ctx context.Context) (int64, error) {
	return m.resetResp, nil
}

func TestEnrollmentHandlerListFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/enrollments?course_id=course-1&payment_status=UNPAID&page=2&page_size=50", nil)
	c.Request = req

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "course-1", mockSvc.lastFilter.CourseID)
	assert.Equal(t, models.PaymentStatusUnpaid, mockSvc.lastFilter.PaymentStatus)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 50, mockSvc.lastFilter.PageSize)
}

func TestEnrollmentHandlerUpdatePayment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(mockSvc)

	payload, _ := json.Marshal(service.UpdatePaymentRequest{PaymentStatus: models.PaymentStatusPaid})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/enrollments/enr-1/payment", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	h.UpdatePayment(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "enr-1", mockSvc.lastPaymentID)
}

func TestEnrollmentHandlerUpdatePaymentInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEnrollmentHandler(&enrollmentServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/enrollments/enr-1/payment", bytes.NewBufferString(`{"payment_status"`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	h.UpdatePayment(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerDeleteNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{deleteErr: appErrors.ErrNotFound}
	h := NewEnrollmentHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/enrollments/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Delete(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEnrollmentHandlerResetAll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &enrollmentServiceMock{resetResp: 42}
	h := NewEnrollmentHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/enrollments/reset", nil)
	c.Request = req

	h.ResetAll(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			Removed int64 `json:"removed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, int64(42), envelope.Data.Removed)
}
