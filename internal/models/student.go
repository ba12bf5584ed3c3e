package models

import "time"

// Student represents a resident registered in the dormitory.
type Student struct {
	ID             string    `db:"id" json:"id"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          string    `db:"email" json:"email"`
	Matricule      string    `db:"matricule" json:"matricule"`
	Phone          string    `db:"phone" json:"phone"`
	EnrollmentDate time.Time `db:"enrollment_date" json:"enrollment_date"`
	RoomID         *string   `db:"room_id" json:"room_id,omitempty"`
	UserID         *string   `db:"user_id" json:"user_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	RoomID    string
	Assigned  *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentDetail contains student information with room context.
type StudentDetail struct {
	Student
	RoomNumber *string `db:"room_number" json:"room_number,omitempty"`
	RoomType   *string `db:"room_type" json:"room_type,omitempty"`
}
