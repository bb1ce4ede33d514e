// models/wallet_mirror.go
package models

import (
	"time"
)

// WalletMirror is a read-only copy of the payment service's wallet table,
// refreshed by the polling worker. The ledger only uses it to flag unknown
// payout recipients in logs; the payment service stays authoritative.
// Table name: wallet_mirror
type WalletMirror struct {
	Address      string    `gorm:"primaryKey;type:varchar(128)" json:"address"`
	Chain        string    `gorm:"type:varchar(64);not null;index" json:"chain"`
	Token        string    `gorm:"type:varchar(64);not null" json:"token"`
	IsTreasury   bool      `gorm:"not null" json:"is_treasury"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	LastSyncedAt time.Time `gorm:"not null" json:"last_synced_at"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (WalletMirror) TableName() string { return "wallet_mirror" }
