package models

import (
	"time"
)

// PayoutStatus tracks the outcome of the single transfer attempt.
type PayoutStatus string

const (
	PayoutStatusSent   PayoutStatus = "sent"
	PayoutStatusFailed PayoutStatus = "failed"
)

// PayoutReceipt is the audit row for the exactly-once escrow release. At
// most one receipt exists per competition; a "failed" receipt means the
// balance was zeroed but the external transfer was rejected, and the loss
// is final.
type PayoutReceipt struct {
	ID            string       `json:"id" gorm:"primaryKey;type:uuid"`
	CompetitionID uint64       `json:"competition_id" gorm:"not null;uniqueIndex"`
	ParticipantID uint64       `json:"participant_id" gorm:"not null"`
	Recipient     string       `json:"recipient" gorm:"type:varchar(128);not null"`
	Amount        uint64       `json:"amount" gorm:"not null"`
	Status        PayoutStatus `json:"status" gorm:"type:varchar(16);not null"`
	TransactionID string       `json:"transaction_id,omitempty"` // payment-service reference when sent
	FailureReason string       `json:"failure_reason,omitempty"`
	CreatedAt     time.Time    `json:"created_at" gorm:"autoCreateTime"`
}
