package models

import (
	"time"
)

// NotificationKind is the operation that produced a notification.
type NotificationKind string

const (
	NotificationCompetitionCreated NotificationKind = "competition_created"
	NotificationCompetitionPaused  NotificationKind = "competition_paused"
	NotificationParticipantJoined  NotificationKind = "participant_joined"
	NotificationJudgeAuthorized    NotificationKind = "judge_authorized"
	NotificationScoreSubmitted     NotificationKind = "score_submitted"
	NotificationFinalized          NotificationKind = "finalized"
	NotificationPayoutSent         NotificationKind = "payout_sent"
	NotificationFinalizeDue        NotificationKind = "finalize_due"
)

// Notification is the append-only feed consumed by the presentation layer.
// The ledger inserts and never reads these back for its own decisions.
type Notification struct {
	ID            string           `json:"id" gorm:"primaryKey;type:uuid"`
	Kind          NotificationKind `json:"kind" gorm:"type:varchar(32);not null;index"`
	CompetitionID uint64           `json:"competition_id" gorm:"not null;index"`
	Actor         string           `json:"actor" gorm:"type:varchar(128)"` // wallet that performed the operation
	// Target is the relevant subject id: participant id for joins/scores,
	// winner id for finalization (0 when no winner).
	Target    uint64    `json:"target"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}
