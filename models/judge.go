package models

import (
	"time"
)

// Judge is the global judge identity, keyed by wallet address. The row is
// created on the judge's first-ever authorization and shared across
// competitions.
type Judge struct {
	Wallet             string    `json:"wallet" gorm:"primaryKey;type:varchar(128)"`
	Name               string    `json:"name"`
	Authorized         bool      `json:"authorized" gorm:"default:true"`
	CompetitionsJudged uint      `json:"competitions_judged" gorm:"default:0"` // informational
	CreatedAt          time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// JudgeAuthorization is the per-competition capability grant. Kept separate
// from the global Judge row so a grant in one competition never implies one
// in another.
type JudgeAuthorization struct {
	CompetitionID uint64    `json:"competition_id" gorm:"primaryKey;autoIncrement:false"`
	JudgeWallet   string    `json:"judge_wallet" gorm:"primaryKey;type:varchar(128)"`
	GrantedBy     string    `json:"granted_by" gorm:"type:varchar(128);not null"`
	GrantedAt     time.Time `json:"granted_at" gorm:"autoCreateTime"`
}
