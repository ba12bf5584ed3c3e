package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dorm-hub-api/internal/models"
	appErrors "github.com/noah-isme/dorm-hub-api/pkg/errors"
)

type rentPaymentsStub struct {
	payments []models.Payment
}

func (s *rentPaymentsStub) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	return s.payments, nil
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{}}
}

func studentClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleStudent}
}

func rentFixtures() (*occupancyStudentsStub, *paymentRoomsStub, *rentPaymentsStub) {
	roomID := "room-1"
	userID := "user-1"
	students := &occupancyStudentsStub{
		students: map[string]*models.StudentDetail{
			"stu-1": {Student: models.Student{
				ID:             "stu-1",
				RoomID:         &roomID,
				UserID:         &userID,
				EnrollmentDate: date(2025, time.January, 10),
			}},
		},
	}
	rooms := &paymentRoomsStub{
		rooms: map[string]*models.Room{
			"room-1": {ID: "room-1", Number: "A-101", Rent: nullDecimal("1000")},
		},
	}
	payments := &rentPaymentsStub{
		payments: []models.Payment{
			{Amount: decimal.RequireFromString("1500"), Status: models.PaymentStatusPaid},
		},
	}
	return students, rooms, payments
}

func TestRemainingRentComputesPosition(t *testing.T) {
	students, rooms, payments := rentFixtures()
	svc := NewRentService(students, rooms, payments, nil, 0, nil, fixedClock(date(2025, time.March, 15)))

	summary, err := svc.RemainingRent(context.Background(), "stu-1", adminClaims())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.MonthsStayed)
	assert.True(t, summary.TotalRentDue.Equal(decimal.RequireFromString("2000")))
	assert.True(t, summary.RemainingRent.Equal(decimal.RequireFromString("500")))
}

func TestRemainingRentUnassignedStudentFails(t *testing.T) {
	students, rooms, payments := rentFixtures()
	students.students["stu-2"] = &models.StudentDetail{Student: models.Student{ID: "stu-2"}}
	svc := NewRentService(students, rooms, payments, nil, 0, nil, nil)

	_, err := svc.RemainingRent(context.Background(), "stu-2", adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, errorCode(t, err))
}

func TestRemainingRentUnknownStudent(t *testing.T) {
	students, rooms, payments := rentFixtures()
	svc := NewRentService(students, rooms, payments, nil, 0, nil, nil)

	_, err := svc.RemainingRent(context.Background(), "missing", adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestRemainingRentOwnRecordAllowed(t *testing.T) {
	students, rooms, payments := rentFixtures()
	svc := NewRentService(students, rooms, payments, nil, 0, nil, fixedClock(date(2025, time.March, 15)))

	_, err := svc.RemainingRent(context.Background(), "stu-1", studentClaims("user-1"))
	require.NoError(t, err)
}

func TestRemainingRentOtherStudentForbidden(t *testing.T) {
	students, rooms, payments := rentFixtures()
	svc := NewRentService(students, rooms, payments, nil, 0, nil, nil)

	_, err := svc.RemainingRent(context.Background(), "stu-1", studentClaims("someone-else"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))
}

func TestRemainingRentWithoutClaimsUnauthorized(t *testing.T) {
	students, rooms, payments := rentFixtures()
	svc := NewRentService(students, rooms, payments, nil, 0, nil, nil)

	_, err := svc.RemainingRent(context.Background(), "stu-1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))
}
