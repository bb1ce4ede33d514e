package models

import (
	"time"
)

// Competition is the root record of the ledger. Ids are bigserial and never
// reused; finalized competitions are kept forever for audit queries.
type Competition struct {
	ID           uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         string    `json:"name" gorm:"not null"`
	Slug         string    `json:"slug" gorm:"uniqueIndex"`
	Description  string    `json:"description"`
	Organizer    string    `json:"organizer" gorm:"type:varchar(128);not null;index"` // wallet address of the creator
	StartTime    time.Time `json:"start_time" gorm:"not null"`
	EndTime      time.Time `json:"end_time" gorm:"not null"`
	Capacity     uint      `json:"capacity" gorm:"not null"`
	Participants uint      `json:"participants" gorm:"default:0"`
	Active       bool      `json:"active" gorm:"default:true"`
	Finalized    bool      `json:"finalized" gorm:"default:false"`
	// Escrowed funds in the smallest currency unit. Entry fees and direct
	// funding accrue here; zeroed before the payout transfer is attempted.
	PrizeBalance uint64  `json:"prize_balance" gorm:"default:0"`
	WinnerID     *uint64 `json:"winner_id,omitempty"`

	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`

	// Calculated fields (not stored in DB)
	AvailableSlots int64 `json:"available_slots,omitempty" gorm:"-"`
}

// MiniCompetition is the brief listing shape for index views.
type MiniCompetition struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Organizer    string    `json:"organizer"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Capacity     uint      `json:"capacity"`
	Participants uint      `json:"participants"`
	Active       bool      `json:"active"`
	Finalized    bool      `json:"finalized"`
	PrizeBalance uint64    `json:"prize_balance"`
	CreatedAt    time.Time `json:"created_at"`
}
