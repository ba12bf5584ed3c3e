package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dorm-hub-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func TestRoomRepositoryCreateStartsAvailable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rooms")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	room := &models.Room{Number: "A-101", Type: "double", MaxOccupancy: 2}
	err := repo.Create(context.Background(), room)
	require.NoError(t, err)

	assert.NotEmpty(t, room.ID)
	assert.Equal(t, 0, room.OccupantCount)
	assert.Equal(t, models.RoomStatusAvailable, room.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryDeleteEmptyRoom(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT occupant_count FROM rooms WHERE id = $1 FOR UPDATE")).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"occupant_count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rooms WHERE id = $1")).
		WithArgs("room-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "room-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryDeleteOccupiedRoom(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT occupant_count FROM rooms WHERE id = $1 FOR UPDATE")).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"occupant_count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "room-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRoomNotEmpty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryMoveStudentAssign(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT room_id FROM students WHERE id = $1 FOR UPDATE")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"room_id"}).AddRow(nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, max_occupancy, occupant_count FROM rooms WHERE id = $1 FOR UPDATE")).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "max_occupancy", "occupant_count"}).AddRow("room-1", 2, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET occupant_count = $1, status = $2, updated_at = $3 WHERE id = $4")).
		WithArgs(2, models.RoomStatusFull, sqlmock.AnyArg(), "room-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET room_id = $1, updated_at = $2 WHERE id = $3")).
		WithArgs("room-1", sqlmock.AnyArg(), "stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	target := "room-1"
	err := repo.MoveStudent(context.Background(), "stu-1", nil, &target)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryMoveStudentFullRoom(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT room_id FROM students WHERE id = $1 FOR UPDATE")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"room_id"}).AddRow(nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, max_occupancy, occupant_count FROM rooms WHERE id = $1 FOR UPDATE")).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "max_occupancy", "occupant_count"}).AddRow("room-1", 2, 2))
	mock.ExpectRollback()

	target := "room-1"
	err := repo.MoveStudent(context.Background(), "stu-1", nil, &target)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryMoveStudentWrongCurrentRoom(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT room_id FROM students WHERE id = $1 FOR UPDATE")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"room_id"}).AddRow("room-other"))
	mock.ExpectRollback()

	from := "room-1"
	err := repo.MoveStudent(context.Background(), "stu-1", &from, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAssigned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryMoveStudentUnassign(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT room_id FROM students WHERE id = $1 FOR UPDATE")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"room_id"}).AddRow("room-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, max_occupancy, occupant_count FROM rooms WHERE id = $1 FOR UPDATE")).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "max_occupancy", "occupant_count"}).AddRow("room-1", 2, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET occupant_count = $1, status = $2, updated_at = $3 WHERE id = $4")).
		WithArgs(1, models.RoomStatusOccupied, sqlmock.AnyArg(), "room-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET room_id = $1, updated_at = $2 WHERE id = $3")).
		WithArgs((*string)(nil), sqlmock.AnyArg(), "stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	from := "room-1"
	err := repo.MoveStudent(context.Background(), "stu-1", &from, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryOccupancySnapshot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	rows := sqlmock.NewRows([]string{"total_rooms", "available_rooms", "occupied_rooms", "full_rooms", "total_capacity", "total_occupants"}).
		AddRow(10, 4, 4, 2, 20, 12)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).WillReturnRows(rows)

	snapshot, err := repo.OccupancySnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, snapshot.TotalRooms)
	assert.Equal(t, 2, snapshot.FullRooms)
	assert.InDelta(t, 0.6, snapshot.OccupancyRate, 0.0001)
}

func TestRoomRepositoryExistsByNumber(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM rooms WHERE number = $1 LIMIT 1")).
		WithArgs("A-101").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByNumber(context.Background(), "A-101", "")
	require.NoError(t, err)
	assert.False(t, exists)
}
