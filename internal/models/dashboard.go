package models

import "github.com/shopspring/decimal"

// OccupancySnapshot aggregates room occupancy for the admin dashboard.
type OccupancySnapshot struct {
	TotalRooms     int     `json:"total_rooms"`
	AvailableRooms int     `json:"available_rooms"`
	OccupiedRooms  int     `json:"occupied_rooms"`
	FullRooms      int     `json:"full_rooms"`
	TotalCapacity  int     `json:"total_capacity"`
	TotalOccupants int     `json:"total_occupants"`
	OccupancyRate  float64 `json:"occupancy_rate"`
}

// PaymentSnapshot aggregates settlement totals for the admin dashboard.
type PaymentSnapshot struct {
	TotalPayments    int             `json:"total_payments"`
	PaidCount        int             `json:"paid_count"`
	PendingCount     int             `json:"pending_count"`
	OverdueCount     int             `json:"overdue_count"`
	CancelledCount   int             `json:"cancelled_count"`
	CollectedAmount  decimal.Decimal `json:"collected_amount"`
	OutstandingCount int             `json:"outstanding_count"`
}

// DashboardSummary is the cached composite payload for the dashboard screen.
type DashboardSummary struct {
	Occupancy OccupancySnapshot `json:"occupancy"`
	Payments  PaymentSnapshot   `json:"payments"`
	Students  int               `json:"students"`
}
