package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dorm-hub-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s LEFT JOIN rooms r ON r.id = s.room_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("s.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.Assigned != nil {
		if *filter.Assigned {
			conditions = append(conditions, "s.room_id IS NOT NULL")
		} else {
			conditions = append(conditions, "s.room_id IS NULL")
		}
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR LOWER(s.email) LIKE $%d OR LOWER(s.matricule) LIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"full_name":  "s.full_name",
		"email":      "s.email",
		"created_at": "s.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT s.id, s.full_name, s.email, s.matricule, s.phone, s.enrollment_date, s.room_id, s.user_id, s.created_at, s.updated_at,
        r.number AS room_number, r.type AS room_type
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.full_name, s.email, s.matricule, s.phone, s.enrollment_date, s.room_id, s.user_id, s.created_at, s.updated_at,
        r.number AS room_number, r.type AS room_type
        FROM students s
        LEFT JOIN rooms r ON r.id = s.room_id
        WHERE s.id = $1`
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByUserID fetches the student record linked to an application user.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.full_name, s.email, s.matricule, s.phone, s.enrollment_date, s.room_id, s.user_id, s.created_at, s.updated_at,
        r.number AS room_number, r.type AS room_type
        FROM students s
        LEFT JOIN rooms r ON r.id = s.room_id
        WHERE s.user_id = $1`
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, userID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByEmail checks if a student with the given email exists, optionally excluding an ID.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE email = $1"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student email: %w", err)
	}
	return true, nil
}

// Create inserts a new student record. Room assignment happens through the
// occupancy ledger, never at creation time.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	student.RoomID = nil
	const query = `INSERT INTO students (id, full_name, email, matricule, phone, enrollment_date, room_id, user_id, created_at, updated_at)
        VALUES (:id, :full_name, :email, :matricule, :phone, :enrollment_date, :room_id, :user_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student. The room reference is excluded; it is
// owned by the occupancy ledger.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET full_name = :full_name, email = :email, matricule = :matricule, phone = :phone,
        enrollment_date = :enrollment_date, user_id = :user_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student together with their payment history, releasing
// their room slot in the same transaction.
func (r *StudentRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var roomID sql.NullString
	if err = tx.GetContext(ctx, &roomID, "SELECT room_id FROM students WHERE id = $1 FOR UPDATE", id); err != nil {
		return err
	}

	if roomID.Valid {
		var room lockedRoom
		if err = tx.GetContext(ctx, &room, "SELECT id, max_occupancy, occupant_count FROM rooms WHERE id = $1 FOR UPDATE", roomID.String); err != nil {
			return err
		}
		count := room.OccupantCount - 1
		if count < 0 {
			count = 0
		}
		status := models.DeriveRoomStatus(count, room.MaxOccupancy)
		if _, err = tx.ExecContext(ctx,
			"UPDATE rooms SET occupant_count = $1, status = $2, updated_at = $3 WHERE id = $4",
			count, status, time.Now().UTC(), room.ID); err != nil {
			return fmt.Errorf("release room slot: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM payments WHERE student_id = $1", id); err != nil {
		return fmt.Errorf("delete student payments: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit student delete: %w", err)
	}
	return nil
}

// CountAll returns the total number of registered students.
func (r *StudentRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students"); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}
