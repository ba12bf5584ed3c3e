package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dorm-hub-api/internal/models"
	"github.com/noah-isme/dorm-hub-api/internal/repository"
	appErrors "github.com/noah-isme/dorm-hub-api/pkg/errors"
)

type roomRepoStub struct {
	rooms      map[string]*models.Room
	numberUsed bool
	occupants  []models.Student
	created    []*models.Room
	updated    []*models.Room
	deleteErr  error
}

func (s *roomRepoStub) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error) {
	out := make([]models.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, *room)
	}
	return out, len(out), nil
}

func (s *roomRepoStub) FindByID(ctx context.Context, id string) (*models.Room, error) {
	if room, ok := s.rooms[id]; ok {
		copy := *room
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *roomRepoStub) ExistsByNumber(ctx context.Context, number string, excludeID string) (bool, error) {
	return s.numberUsed, nil
}

func (s *roomRepoStub) ListOccupants(ctx context.Context, roomID string) ([]models.Student, error) {
	return s.occupants, nil
}

func (s *roomRepoStub) Create(ctx context.Context, room *models.Room) error {
	room.ID = "room-new"
	s.created = append(s.created, room)
	return nil
}

func (s *roomRepoStub) Update(ctx context.Context, room *models.Room) error {
	s.updated = append(s.updated, room)
	return nil
}

func (s *roomRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteErr
}

func TestRoomCreateStartsEmpty(t *testing.T) {
	repo := &roomRepoStub{rooms: map[string]*models.Room{}}
	svc := NewRoomService(repo, nil, nil)

	rent := decimal.RequireFromString("1500")
	room, err := svc.Create(context.Background(), CreateRoomRequest{
		Number:       "A-101",
		Type:         "double",
		MaxOccupancy: 2,
		Rent:         &rent,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, room.OccupantCount)
	require.Len(t, repo.created, 1)
	assert.True(t, repo.created[0].Rent.Valid)
}

func TestRoomCreateRejectsNegativeRent(t *testing.T) {
	repo := &roomRepoStub{rooms: map[string]*models.Room{}}
	svc := NewRoomService(repo, nil, nil)

	rent := decimal.RequireFromString("-10")
	_, err := svc.Create(context.Background(), CreateRoomRequest{
		Number:       "A-101",
		Type:         "double",
		MaxOccupancy: 2,
		Rent:         &rent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidAmount.Code, errorCode(t, err))
	assert.Empty(t, repo.created)
}

func TestRoomCreateRejectsDuplicateNumber(t *testing.T) {
	repo := &roomRepoStub{rooms: map[string]*models.Room{}, numberUsed: true}
	svc := NewRoomService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateRoomRequest{
		Number:       "A-101",
		Type:         "double",
		MaxOccupancy: 2,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestRoomGetIncludesOccupants(t *testing.T) {
	repo := &roomRepoStub{
		rooms:     map[string]*models.Room{"room-1": {ID: "room-1", Number: "A-101", OccupantCount: 1}},
		occupants: []models.Student{{ID: "stu-1", FullName: "Ada"}},
	}
	svc := NewRoomService(repo, nil, nil)

	detail, err := svc.Get(context.Background(), "room-1")
	require.NoError(t, err)
	require.Len(t, detail.Occupants, 1)
	assert.Equal(t, "Ada", detail.Occupants[0].FullName)
}

func TestRoomDeleteOccupiedReturnsRoomNotEmpty(t *testing.T) {
	repo := &roomRepoStub{deleteErr: repository.ErrRoomNotEmpty}
	svc := NewRoomService(repo, nil, nil)

	err := svc.Delete(context.Background(), "room-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRoomNotEmpty.Code, errorCode(t, err))
}

func TestRoomDeleteUnknownRoom(t *testing.T) {
	repo := &roomRepoStub{deleteErr: sql.ErrNoRows}
	svc := NewRoomService(repo, nil, nil)

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}
