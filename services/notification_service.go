package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"competition-ledger/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// ListNotifications returns a competition's notification feed, oldest
// first, optionally restricted with ?since=RFC3339.
func (s *NotificationService) ListNotifications(c *fiber.Ctx) error {
	competitionID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid competition id"})
	}

	query := s.DB.Where("competition_id = ?", competitionID).Order("created_at ASC")
	if sinceStr := c.Query("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid since (use RFC3339)"})
		}
		query = query.Where("created_at > ?", since)
	}

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch notifications"})
	}
	return c.JSON(notifications)
}

// StreamNotificationsSSE streams a competition's new notifications as
// server-sent events, polling the feed table on a short ticker.
func (s *NotificationService) StreamNotificationsSSE(c *fiber.Ctx) error {
	competitionID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid competition id"})
	}

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastMaxCreatedAt time.Time

		// Initialize cursor at the newest existing row so the stream only
		// carries what happens after connect.
		var latest models.Notification
		if err := s.DB.
			Where("competition_id = ?", competitionID).
			Order("created_at DESC").
			First(&latest).Error; err == nil {
			lastMaxCreatedAt = latest.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for competition %d: %v", competitionID, err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var fresh []models.Notification

				err := s.DB.
					Where("competition_id = ?", competitionID).
					Where("created_at > ?", lastMaxCreatedAt).
					Order("created_at ASC").
					Find(&fresh).Error

				if err != nil {
					log.Printf("SSE query error for competition %d: %v", competitionID, err)
					continue
				}

				if len(fresh) == 0 {
					continue
				}

				lastMaxCreatedAt = fresh[len(fresh)-1].CreatedAt

				for _, n := range fresh {
					payload, _ := json.Marshal(n)

					fmt.Fprintf(w,
						"event: %s\ndata: %s\n\n",
						n.Kind, payload,
					)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				return
			}
		}
	})

	return nil
}
