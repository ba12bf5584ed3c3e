package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/dorm-hub-api/internal/models"
	appErrors "github.com/noah-isme/dorm-hub-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// CreateStudentRequest describes student creation payload.
type CreateStudentRequest struct {
	FullName       string    `json:"full_name" validate:"required"`
	Email          string    `json:"email" validate:"required,email"`
	Matricule      string    `json:"matricule"`
	Phone          string    `json:"phone"`
	EnrollmentDate time.Time `json:"enrollment_date" validate:"required"`
	UserID         *string   `json:"user_id"`
}

// UpdateStudentRequest describes student update payload. The room reference
// is deliberately absent; assignments go through the occupancy endpoints.
type UpdateStudentRequest struct {
	FullName       string    `json:"full_name" validate:"required"`
	Email          string    `json:"email" validate:"required,email"`
	Matricule      string    `json:"matricule"`
	Phone          string    `json:"phone"`
	EnrollmentDate time.Time `json:"enrollment_date" validate:"required"`
	UserID         *string   `json:"user_id"`
}

// StudentService manages the resident roster.
type StudentService struct {
	repo      studentRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
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
	return students, pagination, nil
}

// Get returns a student detail; student principals may only read their own
// record.
func (s *StudentService) Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if claims != nil && claims.Role != models.RoleAdmin {
		if student.UserID == nil || *student.UserID != claims.UserID {
			return nil, appErrors.ErrForbidden
		}
	}
	return student, nil
}

// GetSelf returns the student record linked to the authenticated user.
func (s *StudentService) GetSelf(ctx context.Context, claims *models.JWTClaims) (*models.StudentDetail, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	student, err := s.repo.FindByUserID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no student record linked to this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student. Students start without a room.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	exists, err := s.repo.ExistsByEmail(ctx, req.Email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already in use")
	}

	student := &models.Student{
		FullName:       req.FullName,
		Email:          req.Email,
		Matricule:      req.Matricule,
		Phone:          req.Phone,
		EnrollmentDate: req.EnrollmentDate,
		UserID:         req.UserID,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	detail, err := s.repo.FindByID(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student detail")
	}
	return detail, nil
}

// Update edits student attributes.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	exists, err := s.repo.ExistsByEmail(ctx, req.Email, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already in use")
	}

	student := existing.Student
	student.FullName = req.FullName
	student.Email = req.Email
	student.Matricule = req.Matricule
	student.Phone = req.Phone
	student.EnrollmentDate = req.EnrollmentDate
	student.UserID = req.UserID

	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	// The enrollment date feeds the rent accrual; drop any cached summary.
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, rentSummaryCacheKey(id)); err != nil {
			s.logger.Warn("failed to invalidate rent summary cache", zap.Error(err))
		}
	}

	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student detail")
	}
	return detail, nil
}

// Delete removes a student. Their room slot is released and their payment
// history removed in the same transaction.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, dashboardCachePattern); err != nil {
			s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
		}
		if err := s.cache.Invalidate(ctx, rentSummaryCacheKey(id)); err != nil {
			s.logger.Warn("failed to invalidate rent summary cache", zap.Error(err))
		}
	}
	return nil
}
