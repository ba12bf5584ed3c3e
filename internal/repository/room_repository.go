package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dorm-hub-api/internal/models"
)

// Sentinel errors surfaced by the occupancy ledger. The service layer maps
// them onto the typed API errors.
var (
	ErrCapacityExceeded = errors.New("room capacity exceeded")
	ErrNotAssigned      = errors.New("student not assigned to room")
	ErrRoomNotEmpty     = errors.New("room not empty")
)

// RoomRepository manages persistence for rooms and the occupancy ledger.
// Occupant counts are only ever mutated inside MoveStudent so that the count,
// the derived status and the student's room reference stay consistent.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs a RoomRepository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

const roomColumns = "id, number, type, status, max_occupancy, occupant_count, floor, rent, created_at, updated_at"

// List returns rooms matching the provided filters.
func (r *RoomRepository) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error) {
	base := "FROM rooms"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(number) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"number":     "number",
		"status":     "status",
		"created_at": "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "number"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", roomColumns, base, column, order, size, offset)

	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list rooms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count rooms: %w", err)
	}
	return rooms, total, nil
}

// FindByID fetches a room by ID.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	query := fmt.Sprintf("SELECT %s FROM rooms WHERE id = $1", roomColumns)
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// FindByNumber fetches a room by its room number.
func (r *RoomRepository) FindByNumber(ctx context.Context, number string) (*models.Room, error) {
	query := fmt.Sprintf("SELECT %s FROM rooms WHERE number = $1", roomColumns)
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, number); err != nil {
		return nil, err
	}
	return &room, nil
}

// ExistsByNumber checks if a room with the given number exists, optionally excluding an ID.
func (r *RoomRepository) ExistsByNumber(ctx context.Context, number string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM rooms WHERE number = $1"
	args := []interface{}{number}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check room number: %w", err)
	}
	return true, nil
}

// ListOccupants returns the students currently assigned to the room.
func (r *RoomRepository) ListOccupants(ctx context.Context, roomID string) ([]models.Student, error) {
	const query = `SELECT id, full_name, email, matricule, phone, enrollment_date, room_id, user_id, created_at, updated_at
        FROM students WHERE room_id = $1 ORDER BY full_name`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, roomID); err != nil {
		return nil, fmt.Errorf("list occupants: %w", err)
	}
	return students, nil
}

// Create inserts a new room record. A new room starts empty, so its status is
// always derived from a zero occupant count.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now
	room.OccupantCount = 0
	room.Status = models.DeriveRoomStatus(0, room.MaxOccupancy)
	const query = `INSERT INTO rooms (id, number, type, status, max_occupancy, occupant_count, floor, rent, created_at, updated_at)
        VALUES (:id, :number, :type, :status, :max_occupancy, :occupant_count, :floor, :rent, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// Update modifies a room's editable attributes. The occupant count is never
// written here; the status is recomputed from the stored count and the new
// capacity under a row lock.
func (r *RoomRepository) Update(ctx context.Context, room *models.Room) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin room update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var count int
	if err = tx.GetContext(ctx, &count, "SELECT occupant_count FROM rooms WHERE id = $1 FOR UPDATE", room.ID); err != nil {
		return err
	}

	room.OccupantCount = count
	room.Status = models.DeriveRoomStatus(count, room.MaxOccupancy)
	room.UpdatedAt = time.Now().UTC()

	const query = `UPDATE rooms SET number = :number, type = :type, status = :status, max_occupancy = :max_occupancy,
        floor = :floor, rent = :rent, updated_at = :updated_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("update room: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit room update: %w", err)
	}
	return nil
}

// Delete removes a room. It refuses to delete a room that still has occupants,
// checked under a row lock so a concurrent assignment cannot slip in.
func (r *RoomRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin room delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var count int
	if err = tx.GetContext(ctx, &count, "SELECT occupant_count FROM rooms WHERE id = $1 FOR UPDATE", id); err != nil {
		return err
	}
	if count > 0 {
		err = ErrRoomNotEmpty
		return err
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM rooms WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit room delete: %w", err)
	}
	return nil
}

type lockedRoom struct {
	ID            string `db:"id"`
	MaxOccupancy  int    `db:"max_occupancy"`
	OccupantCount int    `db:"occupant_count"`
}

// MoveStudent atomically updates the occupancy ledger for an assignment
// (from nil), an unassignment (to nil) or a reassignment (both set). The
// student's room reference and both room counters commit together or not at
// all. Room rows are locked in ID order to keep lock acquisition consistent
// across concurrent movers.
func (r *RoomRepository) MoveStudent(ctx context.Context, studentID string, fromRoomID, toRoomID *string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin move student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var currentRoomID sql.NullString
	if err = tx.GetContext(ctx, &currentRoomID, "SELECT room_id FROM students WHERE id = $1 FOR UPDATE", studentID); err != nil {
		return err
	}

	if fromRoomID != nil {
		if !currentRoomID.Valid || currentRoomID.String != *fromRoomID {
			err = ErrNotAssigned
			return err
		}
	}

	lockOrder := make([]string, 0, 2)
	if fromRoomID != nil {
		lockOrder = append(lockOrder, *fromRoomID)
	}
	if toRoomID != nil && (fromRoomID == nil || *toRoomID != *fromRoomID) {
		lockOrder = append(lockOrder, *toRoomID)
	}
	if len(lockOrder) == 2 && lockOrder[0] > lockOrder[1] {
		lockOrder[0], lockOrder[1] = lockOrder[1], lockOrder[0]
	}

	locked := make(map[string]*lockedRoom, len(lockOrder))
	for _, roomID := range lockOrder {
		var room lockedRoom
		if err = tx.GetContext(ctx, &room, "SELECT id, max_occupancy, occupant_count FROM rooms WHERE id = $1 FOR UPDATE", roomID); err != nil {
			return err
		}
		locked[roomID] = &room
	}

	if fromRoomID != nil {
		room := locked[*fromRoomID]
		room.OccupantCount--
		if room.OccupantCount < 0 {
			room.OccupantCount = 0
		}
	}
	if toRoomID != nil {
		room := locked[*toRoomID]
		if room.OccupantCount >= room.MaxOccupancy {
			err = ErrCapacityExceeded
			return err
		}
		room.OccupantCount++
	}

	now := time.Now().UTC()
	for _, room := range locked {
		status := models.DeriveRoomStatus(room.OccupantCount, room.MaxOccupancy)
		if _, err = tx.ExecContext(ctx,
			"UPDATE rooms SET occupant_count = $1, status = $2, updated_at = $3 WHERE id = $4",
			room.OccupantCount, status, now, room.ID); err != nil {
			return fmt.Errorf("update room occupancy: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, "UPDATE students SET room_id = $1, updated_at = $2 WHERE id = $3", toRoomID, now, studentID); err != nil {
		return fmt.Errorf("update student room: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit move student: %w", err)
	}
	return nil
}

// OccupancySnapshot aggregates room occupancy for the dashboard.
func (r *RoomRepository) OccupancySnapshot(ctx context.Context) (*models.OccupancySnapshot, error) {
	const query = `SELECT
        COUNT(*) AS total_rooms,
        COUNT(*) FILTER (WHERE status = 'available') AS available_rooms,
        COUNT(*) FILTER (WHERE status = 'occupied') AS occupied_rooms,
        COUNT(*) FILTER (WHERE status = 'complet') AS full_rooms,
        COALESCE(SUM(max_occupancy), 0) AS total_capacity,
        COALESCE(SUM(occupant_count), 0) AS total_occupants
        FROM rooms`
	var row struct {
		TotalRooms     int `db:"total_rooms"`
		AvailableRooms int `db:"available_rooms"`
		OccupiedRooms  int `db:"occupied_rooms"`
		FullRooms      int `db:"full_rooms"`
		TotalCapacity  int `db:"total_capacity"`
		TotalOccupants int `db:"total_occupants"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("occupancy snapshot: %w", err)
	}
	snapshot := &models.OccupancySnapshot{
		TotalRooms:     row.TotalRooms,
		AvailableRooms: row.AvailableRooms,
		OccupiedRooms:  row.OccupiedRooms,
		FullRooms:      row.FullRooms,
		TotalCapacity:  row.TotalCapacity,
		TotalOccupants: row.TotalOccupants,
	}
	if snapshot.TotalCapacity > 0 {
		snapshot.OccupancyRate = float64(snapshot.TotalOccupants) / float64(snapshot.TotalCapacity)
	}
	return snapshot, nil
}
