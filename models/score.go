package models

import (
	"time"
)

// MaxScore is the upper bound of a single submission, inclusive.
const MaxScore = 100

// ScoreEntry records one accepted score submission.
type ScoreEntry struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid"`
	CompetitionID uint64    `json:"competition_id" gorm:"not null;index"`
	JudgeWallet   string    `json:"judge_wallet" gorm:"type:varchar(128);not null;index"`
	ParticipantID uint64    `json:"participant_id" gorm:"not null;index"`
	Score         uint64    `json:"score" gorm:"not null"`
	SubmittedAt   time.Time `json:"submitted_at" gorm:"autoCreateTime"`
}

// JudgeScoreFlag is the irreversible has-scored marker. Under the default
// competition scope ParticipantID stays 0 and the unique key is
// (competition, judge), so one entry gates the whole competition for that
// judge. Under participant scope the target id joins the key.
type JudgeScoreFlag struct {
	CompetitionID uint64    `json:"competition_id" gorm:"primaryKey;autoIncrement:false"`
	JudgeWallet   string    `json:"judge_wallet" gorm:"primaryKey;type:varchar(128)"`
	ParticipantID uint64    `json:"participant_id" gorm:"primaryKey;autoIncrement:false;default:0"`
	ScoredAt      time.Time `json:"scored_at" gorm:"autoCreateTime"`
}
