package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dorm-hub-api/internal/models"
	"github.com/noah-isme/dorm-hub-api/internal/repository"
	appErrors "github.com/noah-isme/dorm-hub-api/pkg/errors"
)

type moveCall struct {
	studentID string
	from      *string
	to        *string
}

type occupancyRoomsStub struct {
	byID     map[string]*models.Room
	byNumber map[string]*models.Room
	moveErr  error
	moves    []moveCall
}

func (s *occupancyRoomsStub) FindByID(ctx context.Context, id string) (*models.Room, error) {
	if room, ok := s.byID[id]; ok {
		return room, nil
	}
	return nil, sql.ErrNoRows
}

func (s *occupancyRoomsStub) FindByNumber(ctx context.Context, number string) (*models.Room, error) {
	if room, ok := s.byNumber[number]; ok {
		return room, nil
	}
	return nil, sql.ErrNoRows
}

func (s *occupancyRoomsStub) MoveStudent(ctx context.Context, studentID string, fromRoomID, toRoomID *string) error {
	s.moves = append(s.moves, moveCall{studentID: studentID, from: fromRoomID, to: toRoomID})
	return s.moveErr
}

type occupancyStudentsStub struct {
	students map[string]*models.StudentDetail
}

func (s *occupancyStudentsStub) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if student, ok := s.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestOccupancyAssignPlacesStudent(t *testing.T) {
	rooms := &occupancyRoomsStub{
		byNumber: map[string]*models.Room{"A-101": {ID: "room-1", Number: "A-101"}},
	}
	students := &occupancyStudentsStub{
		students: map[string]*models.StudentDetail{
			"stu-1": {Student: models.Student{ID: "stu-1"}},
		},
	}
	svc := NewOccupancyService(rooms, students, nil, nil)

	_, err := svc.Assign(context.Background(), "stu-1", AssignRoomRequest{RoomNumber: "A-101"})
	require.NoError(t, err)

	require.Len(t, rooms.moves, 1)
	assert.Equal(t, "stu-1", rooms.moves[0].studentID)
	assert.Nil(t, rooms.moves[0].from)
	require.NotNil(t, rooms.moves[0].to)
	assert.Equal(t, "room-1", *rooms.moves[0].to)
}

func TestOccupancyAssignMovesStudentBetweenRooms(t *testing.T) {
	oldRoom := "room-old"
	rooms := &occupancyRoomsStub{
		byNumber: map[string]*models.Room{"B-202": {ID: "room-new", Number: "B-202"}},
	}
	students := &occupancyStudentsStub{
		students: map[string]*models.StudentDetail{
			"stu-1": {Student: models.Student{ID: "stu-1", RoomID: &oldRoom}},
		},
	}
	svc := NewOccupancyService(rooms, students, nil, nil)

	_, err := svc.Assign(context.Background(), "stu-1", AssignRoomRequest{RoomNumber: "B-202"})
	require.NoError(t, err)

	require.Len(t, rooms.moves, 1)
	require.NotNil(t, rooms.moves[0].from)
	assert.Equal(t, "room-old", *rooms.moves[0].from)
	require.NotNil(t, rooms.moves[0].to)
	assert.Equal(t, "room-new", *rooms.moves[0].to)
}

func TestOccupancyAssignFullRoomFails(t *testing.T) {
	rooms := &occupancyRoomsStub{
		byNumber: map[string]*models.Room{"A-101": {ID: "room-1", Number: "A-101"}},
		moveErr:  repository.ErrCapacityExceeded,
	}
	students := &occupancyStudentsStub{
		students: map[string]*models.StudentDetail{
			"stu-1": {Student: models.Student{ID: "stu-1"}},
		},
	}
	svc := NewOccupancyService(rooms, students, nil, nil)

	_, err := svc.Assign(context.Background(), "stu-1", AssignRoomRequest{RoomNumber: "A-101"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, errorCode(t, err))
}

func TestOccupancyAssignSameRoomRejected(t *testing.T) {
	current := "room-1"
	rooms := &occupancyRoomsStub{
		byNumber: map[string]*models.Room{"A-101": {ID: "room-1", Number: "A-101"}},
	}
	students := &occupancyStudentsStub{
		students: map[string]*models.StudentDetail{
			"stu-1": {Student: models.Student{ID: "stu-1", RoomID: &current}},
		},
	}
	svc := NewOccupancyService(rooms, students, nil, nil)

	_, err := svc.Assign(context.Background(), "stu-1", AssignRoomRequest{RoomNumber: "A-101"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, errorCode(t, err))
	assert.Empty(t, rooms.moves)
}

func TestOccupancyAssignUnknownRoom(t *testing.T) {
	rooms := &occupancyRoomsStub{byNumber: map[string]*models.Room{}}
	students := &occupancyStudentsStub{
		students: map[string]*models.StudentDetail{
			"stu-1": {Student: models.Student{ID: "stu-1"}},
		},
	}
	svc := NewOccupancyService(rooms, students, nil, nil)

	_, err := svc.Assign(context.Background(), "stu-1", AssignRoomRequest{RoomNumber: "Z-999"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestOccupancyUnassignReleasesRoom(t *testing.T) {
	current := "room-1"
	rooms := &occupancyRoomsStub{}
	students := &occupancyStudentsStub{
		students: map[string]*models.StudentDetail{
			"stu-1": {Student: models.Student{ID: "stu-1", RoomID: &current}},
		},
	}
	svc := NewOccupancyService(rooms, students, nil, nil)

	_, err := svc.Unassign(context.Background(), "stu-1")
	require.NoError(t, err)

	require.Len(t, rooms.moves, 1)
	require.NotNil(t, rooms.moves[0].from)
	assert.Equal(t, "room-1", *rooms.moves[0].from)
	assert.Nil(t, rooms.moves[0].to)
}

func TestOccupancyUnassignWithoutRoom(t *testing.T) {
	rooms := &occupancyRoomsStub{}
	students := &occupancyStudentsStub{
		students: map[string]*models.StudentDetail{
			"stu-1": {Student: models.Student{ID: "stu-1"}},
		},
	}
	svc := NewOccupancyService(rooms, students, nil, nil)

	_, err := svc.Unassign(context.Background(), "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotAssigned.Code, errorCode(t, err))
	assert.Empty(t, rooms.moves)
}
