package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the settlement classification of a rent payment.
// Every value except cancelled is derived by the status resolver.
type PaymentStatus string

const (
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusOverdue   PaymentStatus = "overdue"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Valid reports whether the value is a known settlement status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusPending, PaymentStatusOverdue, PaymentStatusCancelled:
		return true
	}
	return false
}

// Payment represents a rent payment transaction.
type Payment struct {
	ID        string          `db:"id" json:"id"`
	StudentID string          `db:"student_id" json:"student_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	DueDate   time.Time       `db:"due_date" json:"due_date"`
	PaidDate  *time.Time      `db:"paid_date" json:"paid_date,omitempty"`
	Status    PaymentStatus   `db:"status" json:"status"`
	// RoomNumber is a snapshot taken at write time; it may diverge from the
	// student's current room after a reassignment.
	RoomNumber  string    `db:"room_number" json:"room_number"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// PaymentDetail contains payment information with student context, used by
// the ledger exports.
type PaymentDetail struct {
	Payment
	StudentName string `db:"student_name" json:"student_name"`
}

// PaymentFilter encapsulates allowed search parameters for listing payments.
type PaymentFilter struct {
	StudentID string
	Status    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// RentSummary is the result of the rent schedule calculation for a student.
type RentSummary struct {
	TotalRentDue  decimal.Decimal `json:"totalRentDue"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
	RemainingRent decimal.Decimal `json:"remainingRent"`
	MonthsStayed  int             `json:"monthsStayed"`
	RoomRent      decimal.Decimal `json:"roomRent"`
}
