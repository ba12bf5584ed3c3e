package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dorm-hub-api/internal/models"
	appErrors "github.com/noah-isme/dorm-hub-api/pkg/errors"
)

const (
	dashboardCachePattern = "dashboard:*"
	dashboardSummaryKey   = "dashboard:summary"
)

type dashboardRoomReader interface {
	OccupancySnapshot(ctx context.Context) (*models.OccupancySnapshot, error)
}

type dashboardPaymentReader interface {
	Snapshot(ctx context.Context) (*models.PaymentSnapshot, error)
}

type dashboardStudentReader interface {
	CountAll(ctx context.Context) (int, error)
}

// DashboardService aggregates occupancy and settlement snapshots for the
// admin dashboard.
type DashboardService struct {
	rooms    dashboardRoomReader
	payments dashboardPaymentReader
	students dashboardStudentReader
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(rooms dashboardRoomReader, payments dashboardPaymentReader, students dashboardStudentReader, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		rooms:    rooms,
		payments: payments,
		students: students,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Summary returns the dashboard aggregates, served from cache when warm.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	if s.cache != nil {
		var cached models.DashboardSummary
		if hit, err := s.cache.Get(ctx, dashboardSummaryKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	occupancy, err := s.rooms.OccupancySnapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occupancy snapshot")
	}
	payments, err := s.payments.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment snapshot")
	}
	students, err := s.students.CountAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}

	summary := &models.DashboardSummary{
		Occupancy: *occupancy,
		Payments:  *payments,
		Students:  students,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardSummaryKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard summary", zap.Error(err))
		}
	}

	return summary, nil
}
