package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/dorm-hub-api/internal/models"
	"github.com/noah-isme/dorm-hub-api/internal/repository"
	appErrors "github.com/noah-isme/dorm-hub-api/pkg/errors"
)

type roomRepository interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	ExistsByNumber(ctx context.Context, number string, excludeID string) (bool, error)
	ListOccupants(ctx context.Context, roomID string) ([]models.Student, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, id string) error
}

// CreateRoomRequest describes room creation payload.
type CreateRoomRequest struct {
	Number       string           `json:"number" validate:"required"`
	Type         string           `json:"type" validate:"required"`
	MaxOccupancy int              `json:"max_occupancy" validate:"required,min=1"`
	Floor        *int             `json:"floor"`
	Rent         *decimal.Decimal `json:"rent"`
}

// UpdateRoomRequest describes room update payload. Occupant count and status
// are absent on purpose; they belong to the occupancy ledger.
type UpdateRoomRequest struct {
	Number       string           `json:"number" validate:"required"`
	Type         string           `json:"type" validate:"required"`
	MaxOccupancy int              `json:"max_occupancy" validate:"required,min=1"`
	Floor        *int             `json:"floor"`
	Rent         *decimal.Decimal `json:"rent"`
}

// RoomService manages the room inventory.
type RoomService struct {
	repo      roomRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoomService constructs RoomService.
func NewRoomService(repo roomRepository, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{repo: repo, validator: validate, logger: logger}
}

// List returns rooms with pagination metadata.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, error) {
	rooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return rooms, pagination, nil
}

// Get returns a room with its current occupants.
func (s *RoomService) Get(ctx context.Context, id string) (*models.RoomDetail, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	occupants, err := s.repo.ListOccupants(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occupants")
	}
	return &models.RoomDetail{Room: *room, Occupants: occupants}, nil
}

// Create registers a new room. Rooms always start empty.
func (s *RoomService) Create(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	if req.Rent != nil && req.Rent.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "rent must not be negative")
	}
	exists, err := s.repo.ExistsByNumber(ctx, req.Number, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate room number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "room number already in use")
	}

	room := &models.Room{
		Number:       req.Number,
		Type:         req.Type,
		MaxOccupancy: req.MaxOccupancy,
		Floor:        req.Floor,
	}
	if req.Rent != nil {
		room.Rent = decimal.NullDecimal{Decimal: *req.Rent, Valid: true}
	}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	return room, nil
}

// Update edits room attributes. The status is recomputed from the stored
// occupant count and the (possibly changed) capacity; callers can never push
// a status that contradicts the count.
func (s *RoomService) Update(ctx context.Context, id string, req UpdateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	if req.Rent != nil && req.Rent.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "rent must not be negative")
	}
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	exists, err := s.repo.ExistsByNumber(ctx, req.Number, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate room number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "room number already in use")
	}

	room.Number = req.Number
	room.Type = req.Type
	room.MaxOccupancy = req.MaxOccupancy
	room.Floor = req.Floor
	room.Rent = decimal.NullDecimal{}
	if req.Rent != nil {
		room.Rent = decimal.NullDecimal{Decimal: *req.Rent, Valid: true}
	}

	if err := s.repo.Update(ctx, room); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room")
	}
	return room, nil
}

// Delete removes a room. A room that still houses students is kept and the
// caller receives RoomNotEmpty.
func (s *RoomService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrRoomNotEmpty):
			return appErrors.ErrRoomNotEmpty
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "room not found")
		default:
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room")
		}
	}
	return nil
}
