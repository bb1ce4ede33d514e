package models

import (
	"time"
)

// Participant is one entry in a competition. Ids come from a single global
// sequence shared across all competitions, so finalize can scan them in
// issuance order. Under the multi-entry policy one wallet may own several
// rows in the same competition, each with its own id and fee.
type Participant struct {
	ID            uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	CompetitionID uint64 `json:"competition_id" gorm:"not null;index"`
	Wallet        string `json:"wallet" gorm:"type:varchar(128);not null;index"`
	Name          string `json:"name"`
	// Submission is an opaque payload: free text, a URL, or the R2 object
	// URL when a file was attached at registration.
	Submission string `json:"submission"`
	TotalScore uint64 `json:"total_score" gorm:"default:0"`
	JudgeCount uint   `json:"judge_count" gorm:"default:0"`
	Eligible   bool   `json:"eligible" gorm:"default:true"`

	RegisteredAt time.Time `json:"registered_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// AverageScore is the floor average of all accepted scores, 0 when unjudged.
func (p *Participant) AverageScore() uint64 {
	if p.JudgeCount == 0 {
		return 0
	}
	return p.TotalScore / uint64(p.JudgeCount)
}

// ScoreboardRow is the per-participant aggregate view for one competition.
type ScoreboardRow struct {
	ParticipantID uint64 `json:"participant_id"`
	Name          string `json:"name"`
	Wallet        string `json:"wallet"`
	TotalScore    uint64 `json:"total_score"`
	JudgeCount    uint   `json:"judge_count"`
	AverageScore  uint64 `json:"average_score"`
}
