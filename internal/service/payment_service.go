package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/dorm-hub-api/internal/models"
	appErrors "github.com/noah-isme/dorm-hub-api/pkg/errors"
	"github.com/noah-isme/dorm-hub-api/pkg/export"
)

type paymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
	ListDetailed(ctx context.Context) ([]models.PaymentDetail, error)
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	Delete(ctx context.Context, id string) error
}

type paymentStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type paymentRoomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

// CreatePaymentRequest describes payment creation payload.
type CreatePaymentRequest struct {
	StudentID   string          `json:"student_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	DueDate     time.Time       `json:"due_date" validate:"required"`
	Description string          `json:"description"`
	// Cancelled is the only status a caller may request; every other status
	// is derived by the resolver.
	Cancelled bool `json:"cancelled"`
}

// UpdatePaymentRequest describes payment update payload. An edited amount or
// due date re-runs classification.
type UpdatePaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	DueDate     time.Time       `json:"due_date" validate:"required"`
	Description string          `json:"description"`
}

// PaymentService orchestrates payment writes: it derives the settlement
// status from the room's rent and the due date, and manages the paid date.
type PaymentService struct {
	repo      paymentRepository
	students  paymentStudentReader
	rooms     paymentRoomReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	clock     Clock

	csv *export.CSVExporter
	pdf *export.PDFExporter
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(repo paymentRepository, students paymentStudentReader, rooms paymentRoomReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger, clock Clock) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = defaultClock
	}
	return &PaymentService{
		repo:      repo,
		students:  students,
		rooms:     rooms,
		cache:     cache,
		validator: validate,
		logger:    logger,
		clock:     clock,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
	}
}

// List returns payments with pagination metadata.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	payments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
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
	return payments, pagination, nil
}

// Get fetches a payment by ID.
func (s *PaymentService) Get(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return payment, nil
}

// Create records a payment, deriving its settlement status unless the caller
// explicitly cancels it.
func (s *PaymentService) Create(ctx context.Context, req CreatePaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "payment amount must be positive")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	roomRent, roomNumber, err := s.roomContext(ctx, student)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		StudentID:   req.StudentID,
		Amount:      req.Amount,
		DueDate:     req.DueDate,
		Description: req.Description,
		RoomNumber:  roomNumber,
	}
	s.applyStatus(payment, roomRent, req.Cancelled)

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payment")
	}

	s.invalidateCaches(ctx, req.StudentID)
	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("student_id", payment.StudentID),
		zap.String("status", string(payment.Status)),
	)
	return payment, nil
}

// Update edits a payment and re-runs classification. Cancelled payments are
// terminal and reject further edits.
func (s *PaymentService) Update(ctx context.Context, id string, req UpdatePaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "payment amount must be positive")
	}

	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.Status == models.PaymentStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "payment is cancelled")
	}

	student, err := s.students.FindByID(ctx, payment.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	roomRent, roomNumber, err := s.roomContext(ctx, student)
	if err != nil {
		return nil, err
	}

	payment.Amount = req.Amount
	payment.DueDate = req.DueDate
	payment.Description = req.Description
	payment.RoomNumber = roomNumber
	s.applyStatus(payment, roomRent, false)

	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment")
	}

	s.invalidateCaches(ctx, payment.StudentID)
	return payment, nil
}

// Cancel marks a payment as cancelled. This is the only status an
// administrator can set directly, and it is terminal.
func (s *PaymentService) Cancel(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.Status == models.PaymentStatusCancelled {
		return payment, nil
	}

	payment.Status = models.PaymentStatusCancelled
	payment.PaidDate = nil
	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel payment")
	}

	s.invalidateCaches(ctx, payment.StudentID)
	s.logger.Info("payment cancelled", zap.String("payment_id", payment.ID))
	return payment, nil
}

// Delete removes a payment record.
func (s *PaymentService) Delete(ctx context.Context, id string) error {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete payment")
	}
	s.invalidateCaches(ctx, payment.StudentID)
	return nil
}

// ExportCSV renders the full payment ledger as CSV.
func (s *PaymentService) ExportCSV(ctx context.Context) ([]byte, error) {
	dataset, err := s.ledgerDataset(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := s.csv.Render(*dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
	}
	return raw, nil
}

// ExportPDF renders the full payment ledger as a tabular PDF.
func (s *PaymentService) ExportPDF(ctx context.Context) ([]byte, error) {
	dataset, err := s.ledgerDataset(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := s.pdf.Render(*dataset, "Payment Ledger")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
	}
	return raw, nil
}

func (s *PaymentService) ledgerDataset(ctx context.Context) (*export.Dataset, error) {
	payments, err := s.repo.ListDetailed(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payments for export")
	}
	dataset := &export.Dataset{
		Headers: []string{"Student", "Room", "Amount", "Due Date", "Paid Date", "Status", "Description"},
	}
	for _, p := range payments {
		paidDate := ""
		if p.PaidDate != nil {
			paidDate = p.PaidDate.Format("2006-01-02")
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":     p.StudentName,
			"Room":        p.RoomNumber,
			"Amount":      p.Amount.StringFixed(2),
			"Due Date":    p.DueDate.Format("2006-01-02"),
			"Paid Date":   paidDate,
			"Status":      string(p.Status),
			"Description": p.Description,
		})
	}
	return dataset, nil
}

// roomContext resolves the rent and room number snapshot for a student's
// current room. A student without a room yields an undefined rent and an
// empty snapshot.
func (s *PaymentService) roomContext(ctx context.Context, student *models.StudentDetail) (decimal.NullDecimal, string, error) {
	if student.RoomID == nil {
		return decimal.NullDecimal{}, "", nil
	}
	room, err := s.rooms.FindByID(ctx, *student.RoomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.NullDecimal{}, "", appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return decimal.NullDecimal{}, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return room.Rent, room.Number, nil
}

// applyStatus runs the resolver and keeps the paid date consistent with the
// outcome: only a paid payment carries a paid date.
func (s *PaymentService) applyStatus(payment *models.Payment, roomRent decimal.NullDecimal, cancelled bool) {
	if cancelled {
		payment.Status = models.PaymentStatusCancelled
		payment.PaidDate = nil
		return
	}
	today := s.clock()
	payment.Status = ResolvePaymentStatus(payment.Amount, roomRent, payment.DueDate, today)
	if payment.Status == models.PaymentStatusPaid {
		paidAt := dateOnly(today)
		payment.PaidDate = &paidAt
	} else {
		payment.PaidDate = nil
	}
}

func (s *PaymentService) invalidateCaches(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, dashboardCachePattern); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, rentSummaryCacheKey(studentID)); err != nil {
		s.logger.Warn("failed to invalidate rent summary cache", zap.Error(err))
	}
}
