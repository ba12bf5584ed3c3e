package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/dorm-hub-api/internal/models"
)

// dateOnly strips the time-of-day component for due date comparisons.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ResolvePaymentStatus classifies a payment at write time.
//
// A due date strictly before today makes the payment overdue regardless of
// amount; a late partial payment is overdue, not pending. Otherwise the
// payment is paid when the room rent is configured and the amount covers it,
// and pending in every other case. Cancelled is never produced here; it is an
// explicit administrator override.
func ResolvePaymentStatus(amount decimal.Decimal, roomRent decimal.NullDecimal, dueDate, today time.Time) models.PaymentStatus {
	if dateOnly(dueDate).Before(dateOnly(today)) {
		return models.PaymentStatusOverdue
	}
	if roomRent.Valid && amount.GreaterThanOrEqual(roomRent.Decimal) {
		return models.PaymentStatusPaid
	}
	return models.PaymentStatusPending
}
