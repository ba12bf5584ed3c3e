package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dorm-hub-api/internal/models"
)

func TestStudentRepositoryListUnassignedFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "matricule", "phone", "enrollment_date", "room_id", "user_id", "created_at", "updated_at", "room_number", "room_type"}).
		AddRow("stu-1", "Ada Lovelace", "ada@example.com", "M-001", nil, now, nil, nil, now, now, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("s.room_id IS NULL")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	assigned := false
	students, total, err := repo.List(context.Background(), models.StudentFilter{Assigned: &assigned})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, students, 1)
	assert.Nil(t, students[0].RoomID)
}

func TestStudentRepositoryCreateIgnoresRoom(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	roomID := "room-1"
	student := &models.Student{
		FullName:       "Ada Lovelace",
		Email:          "ada@example.com",
		EnrollmentDate: time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC),
		RoomID:         &roomID,
	}
	err := repo.Create(context.Background(), student)
	require.NoError(t, err)

	assert.NotEmpty(t, student.ID)
	assert.Nil(t, student.RoomID, "room assignment only happens through the occupancy ledger")
}

func TestStudentRepositoryDeleteReleasesRoom(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT room_id FROM students WHERE id = $1 FOR UPDATE")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"room_id"}).AddRow("room-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, max_occupancy, occupant_count FROM rooms WHERE id = $1 FOR UPDATE")).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "max_occupancy", "occupant_count"}).AddRow("room-1", 2, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET occupant_count = $1, status = $2, updated_at = $3 WHERE id = $4")).
		WithArgs(0, models.RoomStatusAvailable, sqlmock.AnyArg(), "room-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM payments WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteUnassignedSkipsRoomUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT room_id FROM students WHERE id = $1 FOR UPDATE")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"room_id"}).AddRow(nil))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM payments WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByEmailExcludesID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE email = $1 AND id <> $2 LIMIT 1")).
		WithArgs("ada@example.com", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByEmail(context.Background(), "ada@example.com", "stu-1")
	require.NoError(t, err)
	assert.True(t, exists)
}
