package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dorm-hub-api/internal/models"
	appErrors "github.com/noah-isme/dorm-hub-api/pkg/errors"
)

type rentPaymentReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error)
}

func rentSummaryCacheKey(studentID string) string {
	return fmt.Sprintf("rent:summary:%s", studentID)
}

// RentService answers remaining-rent queries: it loads the student's room and
// payment history and delegates the arithmetic to the rent calculator.
type RentService struct {
	students occupancyStudentReader
	rooms    paymentRoomReader
	payments rentPaymentReader
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
	clock    Clock
}

// NewRentService constructs RentService.
func NewRentService(students occupancyStudentReader, rooms paymentRoomReader, payments rentPaymentReader, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger, clock Clock) *RentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = defaultClock
	}
	return &RentService{
		students: students,
		rooms:    rooms,
		payments: payments,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
		clock:    clock,
	}
}

// RemainingRent computes the rent position for a student as of today.
// A student without a room is a distinct failure, not a zero balance: the
// client renders "no room assigned" instead of "nothing owed".
func (s *RentService) RemainingRent(ctx context.Context, studentID string, claims *models.JWTClaims) (*models.RentSummary, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if err := s.authorize(student, claims); err != nil {
		return nil, err
	}

	if student.RoomID == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student has no room assignment")
	}

	cacheKey := rentSummaryCacheKey(studentID)
	if s.cache != nil {
		var cached models.RentSummary
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	room, err := s.rooms.FindByID(ctx, *student.RoomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	payments, err := s.payments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment history")
	}

	summary := ComputeRentSummary(student.EnrollmentDate, room.Rent, payments, s.clock())

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache rent summary", zap.String("student_id", studentID), zap.Error(err))
		}
	}

	return &summary, nil
}

// authorize lets admins read any student; a student principal may only read
// the record linked to their own account.
func (s *RentService) authorize(student *models.StudentDetail, claims *models.JWTClaims) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleAdmin {
		return nil
	}
	if student.UserID != nil && *student.UserID == claims.UserID {
		return nil
	}
	return appErrors.ErrForbidden
}
