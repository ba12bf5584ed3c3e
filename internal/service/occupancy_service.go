package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/dorm-hub-api/internal/models"
	"github.com/noah-isme/dorm-hub-api/internal/repository"
	appErrors "github.com/noah-isme/dorm-hub-api/pkg/errors"
)

type occupancyRoomRepository interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindByNumber(ctx context.Context, number string) (*models.Room, error)
	MoveStudent(ctx context.Context, studentID string, fromRoomID, toRoomID *string) error
}

type occupancyStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// AssignRoomRequest carries the assignment payload. The mobile client sends
// the room number, not the room ID.
type AssignRoomRequest struct {
	RoomNumber string `json:"roomCode" validate:"required"`
}

// OccupancyService keeps room occupant counts consistent with student-room
// assignments. Every mutation funnels into the repository's transactional
// ledger so two concurrent assignments cannot overrun a room's capacity.
type OccupancyService struct {
	rooms    occupancyRoomRepository
	students occupancyStudentReader
	cache    *CacheService
	logger   *zap.Logger
}

// NewOccupancyService constructs an OccupancyService.
func NewOccupancyService(rooms occupancyRoomRepository, students occupancyStudentReader, cache *CacheService, logger *zap.Logger) *OccupancyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OccupancyService{rooms: rooms, students: students, cache: cache, logger: logger}
}

// Assign places a student into the room with the given number. A student who
// already holds a room is moved; the unassign and assign commit together, so
// a full target room leaves the student in their original room.
func (s *OccupancyService) Assign(ctx context.Context, studentID string, req AssignRoomRequest) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	room, err := s.rooms.FindByNumber(ctx, req.RoomNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	if student.RoomID != nil && *student.RoomID == room.ID {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student already assigned to this room")
	}

	if err := s.rooms.MoveStudent(ctx, studentID, student.RoomID, &room.ID); err != nil {
		return nil, s.mapLedgerError(err)
	}

	s.invalidateDashboard(ctx)
	s.logger.Info("student assigned to room",
		zap.String("student_id", studentID),
		zap.String("room_id", room.ID),
		zap.String("room_number", room.Number),
	)

	return s.reload(ctx, studentID)
}

// Unassign removes a student from their current room.
func (s *OccupancyService) Unassign(ctx context.Context, studentID string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if student.RoomID == nil {
		return nil, appErrors.Clone(appErrors.ErrNotAssigned, "student has no room assignment")
	}

	if err := s.rooms.MoveStudent(ctx, studentID, student.RoomID, nil); err != nil {
		return nil, s.mapLedgerError(err)
	}

	s.invalidateDashboard(ctx)
	s.logger.Info("student unassigned from room",
		zap.String("student_id", studentID),
		zap.String("room_id", *student.RoomID),
	)

	return s.reload(ctx, studentID)
}

func (s *OccupancyService) reload(ctx context.Context, studentID string) (*models.StudentDetail, error) {
	detail, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student detail")
	}
	return detail, nil
}

func (s *OccupancyService) mapLedgerError(err error) error {
	switch {
	case errors.Is(err, repository.ErrCapacityExceeded):
		return appErrors.ErrCapacityExceeded
	case errors.Is(err, repository.ErrNotAssigned):
		return appErrors.ErrNotAssigned
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "room or student not found")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update occupancy")
	}
}

func (s *OccupancyService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, dashboardCachePattern); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
