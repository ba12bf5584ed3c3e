package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dorm-hub-api/internal/models"
	appErrors "github.com/noah-isme/dorm-hub-api/pkg/errors"
)

type cacheRepoStub struct {
	entries  map[string][]byte
	setCalls int
	getCalls int
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{entries: map[string][]byte{}}
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	s.getCalls++
	raw, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.setCalls++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = raw
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.entries = map[string][]byte{}
	return nil
}

type dashboardRoomsStub struct {
	snapshot *models.OccupancySnapshot
	calls    int
}

func (s *dashboardRoomsStub) OccupancySnapshot(ctx context.Context) (*models.OccupancySnapshot, error) {
	s.calls++
	return s.snapshot, nil
}

type dashboardPaymentsStub struct {
	snapshot *models.PaymentSnapshot
}

func (s *dashboardPaymentsStub) Snapshot(ctx context.Context) (*models.PaymentSnapshot, error) {
	return s.snapshot, nil
}

type dashboardStudentsStub struct {
	count int
}

func (s *dashboardStudentsStub) CountAll(ctx context.Context) (int, error) {
	return s.count, nil
}

func TestDashboardSummaryComposesSnapshots(t *testing.T) {
	rooms := &dashboardRoomsStub{snapshot: &models.OccupancySnapshot{TotalRooms: 10, FullRooms: 2, TotalCapacity: 20, TotalOccupants: 12}}
	payments := &dashboardPaymentsStub{snapshot: &models.PaymentSnapshot{TotalPayments: 8, OverdueCount: 1}}
	students := &dashboardStudentsStub{count: 12}
	svc := NewDashboardService(rooms, payments, students, nil, 0, nil)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, summary.Occupancy.TotalRooms)
	assert.Equal(t, 1, summary.Payments.OverdueCount)
	assert.Equal(t, 12, summary.Students)
}

func TestDashboardSummaryServedFromCache(t *testing.T) {
	rooms := &dashboardRoomsStub{snapshot: &models.OccupancySnapshot{TotalRooms: 10}}
	payments := &dashboardPaymentsStub{snapshot: &models.PaymentSnapshot{}}
	students := &dashboardStudentsStub{count: 12}
	cacheRepo := newCacheRepoStub()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewDashboardService(rooms, payments, students, cache, time.Minute, nil)

	first, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cacheRepo.setCalls)

	second, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Occupancy.TotalRooms, second.Occupancy.TotalRooms)
	assert.Equal(t, 1, rooms.calls, "the second summary must come from cache")
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	cache := NewCacheService(nil, nil, time.Minute, nil, false)

	hit, err := cache.Get(context.Background(), "key", &struct{}{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, cache.Set(context.Background(), "key", "value", time.Minute))
	assert.NoError(t, cache.Invalidate(context.Background(), "key:*"))
}
