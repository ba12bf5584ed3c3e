package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoomStatus is derived from occupant count and capacity, never set directly.
type RoomStatus string

const (
	RoomStatusAvailable RoomStatus = "available"
	RoomStatusOccupied  RoomStatus = "occupied"
	// RoomStatusFull keeps the legacy "complet" wire value used by the mobile client.
	RoomStatusFull RoomStatus = "complet"
)

// Room represents a dormitory room.
type Room struct {
	ID            string              `db:"id" json:"id"`
	Number        string              `db:"number" json:"number"`
	Type          string              `db:"type" json:"type"`
	Status        RoomStatus          `db:"status" json:"status"`
	MaxOccupancy  int                 `db:"max_occupancy" json:"max_occupancy"`
	OccupantCount int                 `db:"occupant_count" json:"occupant_count"`
	Floor         *int                `db:"floor" json:"floor,omitempty"`
	Rent          decimal.NullDecimal `db:"rent" json:"rent,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

// DeriveRoomStatus maps an occupant count onto the status enumeration.
// available iff count = 0, occupied iff 0 < count < max, complet iff count >= max.
func DeriveRoomStatus(occupantCount, maxOccupancy int) RoomStatus {
	switch {
	case occupantCount <= 0:
		return RoomStatusAvailable
	case occupantCount < maxOccupancy:
		return RoomStatusOccupied
	default:
		return RoomStatusFull
	}
}

// RoomFilter encapsulates allowed search parameters for listing rooms.
type RoomFilter struct {
	Status    string
	Type      string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// RoomDetail contains room information with its current occupants.
type RoomDetail struct {
	Room
	Occupants []Student `json:"occupants,omitempty"`
}
