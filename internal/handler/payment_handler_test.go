package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dorm-hub-api/internal/models"
	"github.com/noah-isme/dorm-hub-api/internal/service"
)

type paymentRepoFake struct {
	payments map[string]*models.Payment
	detailed []models.PaymentDetail
	updated  []*models.Payment
}

func (f *paymentRepoFake) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	out := make([]models.Payment, 0, len(f.payments))
	for _, p := range f.payments {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (f *paymentRepoFake) ListDetailed(ctx context.Context) ([]models.PaymentDetail, error) {
	return f.detailed, nil
}

func (f *paymentRepoFake) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	if p, ok := f.payments[id]; ok {
		copy := *p
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *paymentRepoFake) Create(ctx context.Context, payment *models.Payment) error {
	payment.ID = "pay-new"
	return nil
}

func (f *paymentRepoFake) Update(ctx context.Context, payment *models.Payment) error {
	f.updated = append(f.updated, payment)
	return nil
}

func (f *paymentRepoFake) Delete(ctx context.Context, id string) error {
	return nil
}

type studentReaderFake struct {
	students map[string]*models.StudentDetail
}

func (f *studentReaderFake) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := f.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type roomReaderFake struct {
	rooms map[string]*models.Room
}

func (f *roomReaderFake) FindByID(ctx context.Context, id string) (*models.Room, error) {
	if r, ok := f.rooms[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func newPaymentHandler(repo *paymentRepoFake) *PaymentHandler {
	students := &studentReaderFake{students: map[string]*models.StudentDetail{}}
	rooms := &roomReaderFake{rooms: map[string]*models.Room{}}
	svc := service.NewPaymentService(repo, students, rooms, nil, nil, nil, nil)
	return NewPaymentHandler(svc)
}

func TestPaymentHandlerUpdateStatusRejectsDerivedStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPaymentHandler(&paymentRepoFake{payments: map[string]*models.Payment{}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "pay-1"}}
	c.Request = httptest.NewRequest(http.MethodPatch, "/payments/pay-1/status", strings.NewReader(`{"status":"paid"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Contains(t, envelope.Error.Message, "cancelled")
}

func TestPaymentHandlerUpdateStatusCancels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	paidAt := time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC)
	repo := &paymentRepoFake{payments: map[string]*models.Payment{
		"pay-1": {
			ID:        "pay-1",
			StudentID: "stu-1",
			Amount:    decimal.RequireFromString("1000"),
			DueDate:   time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
			Status:    models.PaymentStatusPaid,
			PaidDate:  &paidAt,
		},
	}}
	handler := newPaymentHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "pay-1"}}
	c.Request = httptest.NewRequest(http.MethodPatch, "/payments/pay-1/status", strings.NewReader(`{"status":"cancelled"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.updated, 1)
	assert.Equal(t, models.PaymentStatusCancelled, repo.updated[0].Status)
	assert.Nil(t, repo.updated[0].PaidDate)
}

func TestPaymentHandlerCreateInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPaymentHandler(&paymentRepoFake{payments: map[string]*models.Payment{}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(`{"amount":"not-a-number"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentHandlerExportCSVSetsAttachment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &paymentRepoFake{detailed: []models.PaymentDetail{
		{
			Payment: models.Payment{
				Amount:     decimal.RequireFromString("1000"),
				DueDate:    time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
				Status:     models.PaymentStatusPending,
				RoomNumber: "A-101",
			},
			StudentName: "Ada Lovelace",
		},
	}}
	handler := newPaymentHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/payments/export/csv", nil)

	handler.ExportCSV(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), "Ada Lovelace")
}
