package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dorm-hub-api/internal/models"
	appErrors "github.com/noah-isme/dorm-hub-api/pkg/errors"
)

type studentRepoStub struct {
	students   map[string]*models.StudentDetail
	byUser     map[string]*models.StudentDetail
	emailInUse bool
	created    []*models.Student
	updated    []*models.Student
	deleted    []string
}

func (s *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	out := make([]models.StudentDetail, 0, len(s.students))
	for _, student := range s.students {
		out = append(out, *student)
	}
	return out, len(out), nil
}

func (s *studentRepoStub) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if student, ok := s.students[id]; ok {
		copy := *student
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *studentRepoStub) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	if student, ok := s.byUser[userID]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

func (s *studentRepoStub) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	return s.emailInUse, nil
}

func (s *studentRepoStub) Create(ctx context.Context, student *models.Student) error {
	student.ID = "stu-new"
	s.created = append(s.created, student)
	s.students[student.ID] = &models.StudentDetail{Student: *student}
	return nil
}

func (s *studentRepoStub) Update(ctx context.Context, student *models.Student) error {
	s.updated = append(s.updated, student)
	return nil
}

func (s *studentRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.students[id]; !ok {
		return sql.ErrNoRows
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func TestStudentCreateStartsUnassigned(t *testing.T) {
	repo := &studentRepoStub{students: map[string]*models.StudentDetail{}}
	svc := NewStudentService(repo, nil, nil, nil)

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		FullName:       "Ada Lovelace",
		Email:          "ada@example.com",
		EnrollmentDate: date(2025, time.January, 10),
	})
	require.NoError(t, err)

	assert.Nil(t, student.RoomID)
	require.Len(t, repo.created, 1)
}

func TestStudentCreateDuplicateEmail(t *testing.T) {
	repo := &studentRepoStub{students: map[string]*models.StudentDetail{}, emailInUse: true}
	svc := NewStudentService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		FullName:       "Ada Lovelace",
		Email:          "ada@example.com",
		EnrollmentDate: date(2025, time.January, 10),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestStudentGetOwnRecordOnly(t *testing.T) {
	userID := "user-1"
	repo := &studentRepoStub{
		students: map[string]*models.StudentDetail{
			"stu-1": {Student: models.Student{ID: "stu-1", UserID: &userID}},
		},
	}
	svc := NewStudentService(repo, nil, nil, nil)

	_, err := svc.Get(context.Background(), "stu-1", studentClaims("user-1"))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "stu-1", studentClaims("intruder"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))

	_, err = svc.Get(context.Background(), "stu-1", adminClaims())
	require.NoError(t, err)
}

func TestStudentGetSelf(t *testing.T) {
	userID := "user-1"
	detail := &models.StudentDetail{Student: models.Student{ID: "stu-1", UserID: &userID}}
	repo := &studentRepoStub{
		students: map[string]*models.StudentDetail{"stu-1": detail},
		byUser:   map[string]*models.StudentDetail{"user-1": detail},
	}
	svc := NewStudentService(repo, nil, nil, nil)

	student, err := svc.GetSelf(context.Background(), studentClaims("user-1"))
	require.NoError(t, err)
	assert.Equal(t, "stu-1", student.ID)

	_, err = svc.GetSelf(context.Background(), studentClaims("no-record"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestStudentDeleteUnknown(t *testing.T) {
	repo := &studentRepoStub{students: map[string]*models.StudentDetail{}}
	svc := NewStudentService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}
