package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/dorm-hub-api/internal/models"
)

// PaymentRepository manages persistence for rent payments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = "id, student_id, amount, due_date, paid_date, status, room_number, description, created_at, updated_at"

// List returns payments matching the provided filters.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	base := "FROM payments"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"due_date":   "due_date",
		"amount":     "amount",
		"created_at": "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "due_date"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", paymentColumns, base, column, order, size, offset)

	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// ListByStudent returns the full payment history for a student.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments WHERE student_id = $1 ORDER BY due_date DESC", paymentColumns)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student payments: %w", err)
	}
	return payments, nil
}

// ListDetailed returns every payment joined with the student's name, ordered
// for ledger exports.
func (r *PaymentRepository) ListDetailed(ctx context.Context) ([]models.PaymentDetail, error) {
	const query = `SELECT p.id, p.student_id, p.amount, p.due_date, p.paid_date, p.status, p.room_number, p.description, p.created_at, p.updated_at,
        s.full_name AS student_name
        FROM payments p
        JOIN students s ON s.id = p.student_id
        ORDER BY p.due_date DESC, s.full_name`
	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query); err != nil {
		return nil, fmt.Errorf("list detailed payments: %w", err)
	}
	return payments, nil
}

// FindByID fetches a payment by ID.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments WHERE id = $1", paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// Create inserts a new payment record.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now
	const query = `INSERT INTO payments (id, student_id, amount, due_date, paid_date, status, room_number, description, created_at, updated_at)
        VALUES (:id, :student_id, :amount, :due_date, :paid_date, :status, :room_number, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// Update modifies an existing payment including its derived status fields.
func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	payment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE payments SET amount = :amount, due_date = :due_date, paid_date = :paid_date, status = :status,
        room_number = :room_number, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}

// Delete removes a payment.
func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM payments WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return nil
}

// Snapshot aggregates settlement totals for the dashboard.
func (r *PaymentRepository) Snapshot(ctx context.Context) (*models.PaymentSnapshot, error) {
	const query = `SELECT
        COUNT(*) AS total_payments,
        COUNT(*) FILTER (WHERE status = 'paid') AS paid_count,
        COUNT(*) FILTER (WHERE status = 'pending') AS pending_count,
        COUNT(*) FILTER (WHERE status = 'overdue') AS overdue_count,
        COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled_count,
        COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0) AS collected_amount
        FROM payments`
	var row struct {
		TotalPayments   int             `db:"total_payments"`
		PaidCount       int             `db:"paid_count"`
		PendingCount    int             `db:"pending_count"`
		OverdueCount    int             `db:"overdue_count"`
		CancelledCount  int             `db:"cancelled_count"`
		CollectedAmount decimal.Decimal `db:"collected_amount"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("payment snapshot: %w", err)
	}
	return &models.PaymentSnapshot{
		TotalPayments:    row.TotalPayments,
		PaidCount:        row.PaidCount,
		PendingCount:     row.PendingCount,
		OverdueCount:     row.OverdueCount,
		CancelledCount:   row.CancelledCount,
		CollectedAmount:  row.CollectedAmount,
		OutstandingCount: row.PendingCount + row.OverdueCount,
	}, nil
}
