// services/scheduler.go
package services

import (
	"log"
	"time"

	"competition-ledger/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// StartSettlementSweep emits one finalize_due reminder for each competition
// that has passed its end time without being finalized. Finalization itself
// stays organizer-only; the sweep only feeds the notification stream.
func (s *CompetitionService) StartSettlementSweep() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var due []models.Competition
			now := time.Now()
			err := s.DB.
				Where("finalized = ? AND end_time <= ?", false, now).
				Where("NOT EXISTS (SELECT 1 FROM notifications WHERE notifications.competition_id = competitions.id AND notifications.kind = ?)",
					models.NotificationFinalizeDue).
				Find(&due).Error
			if err != nil {
				log.Printf("[Sweep] DB error: %v", err)
				return
			}

			for _, comp := range due {
				err := s.DB.Transaction(func(tx *gorm.DB) error {
					return notify(tx, models.NotificationFinalizeDue, comp.ID, "", 0, comp.Name)
				})
				if err != nil {
					log.Printf("[Sweep] Failed to flag competition %d: %v", comp.ID, err)
				} else {
					log.Printf("⏰ Competition %d (%s) ended and awaits finalization", comp.ID, comp.Name)
				}
			}
		}),
	)
}
