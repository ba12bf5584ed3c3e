package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/dorm-hub-api/internal/models"
)

// Clock supplies "today" to the rent and settlement rules so they stay
// deterministic under test.
type Clock func() time.Time

func defaultClock() time.Time {
	return time.Now().UTC()
}

// MonthsStayed returns the number of whole calendar months between the
// move-in date and the evaluation date, with a minimum of one: any partial
// month of occupancy owes a full month of rent. Day-of-month is ignored, so
// a stay from Jan 10 to Mar 15 counts two months.
func MonthsStayed(moveIn, asOf time.Time) int {
	months := (asOf.Year()-moveIn.Year())*12 + int(asOf.Month()) - int(moveIn.Month())
	if months < 1 {
		months = 1
	}
	return months
}

// ComputeRentSummary derives the rent position for a student from their
// move-in date, the room's monthly rent and their payment history. Only
// payments with status paid count toward the total; the remaining balance is
// floored at zero. A room without a configured rent yields an all-zero
// summary. Pure computation over the supplied inputs.
func ComputeRentSummary(moveIn time.Time, roomRent decimal.NullDecimal, payments []models.Payment, asOf time.Time) models.RentSummary {
	if !roomRent.Valid || roomRent.Decimal.IsZero() {
		zero := decimal.Zero
		return models.RentSummary{
			TotalRentDue:  zero,
			TotalPaid:     zero,
			RemainingRent: zero,
			MonthsStayed:  0,
			RoomRent:      zero,
		}
	}

	months := MonthsStayed(moveIn, asOf)
	totalDue := roomRent.Decimal.Mul(decimal.NewFromInt(int64(months)))

	totalPaid := decimal.Zero
	for _, payment := range payments {
		if payment.Status == models.PaymentStatusPaid {
			totalPaid = totalPaid.Add(payment.Amount)
		}
	}

	remaining := totalDue.Sub(totalPaid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return models.RentSummary{
		TotalRentDue:  totalDue,
		TotalPaid:     totalPaid,
		RemainingRent: remaining,
		MonthsStayed:  months,
		RoomRent:      roomRent.Decimal,
	}
}
