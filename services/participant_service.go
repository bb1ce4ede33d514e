package services

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"time"

	"competition-ledger/models"
	"competition-ledger/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ParticipantService struct {
	DB     *gorm.DB
	Policy Policy
}

func NewParticipantService(db *gorm.DB, policy Policy) *ParticipantService {
	return &ParticipantService{DB: db, Policy: policy}
}

// Register enters the caller into a competition. Multipart form fields:
// name, submission (text/URL), fee (smallest unit, already collected by the
// gateway), and optionally submission_file which is uploaded to R2 and
// becomes the submission payload.
//
// The whole mutation runs under the competition row lock: capacity check,
// duplicate check, participant insert, counter bump and fee accrual commit
// together or not at all.
func (s *ParticipantService) Register(c *fiber.Ctx) error {
	competitionID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid competition id"})
	}

	name := c.FormValue("name")
	submission := c.FormValue("submission")
	if name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}

	var fee uint64
	if feeStr := c.FormValue("fee"); feeStr != "" {
		fee, err = strconv.ParseUint(feeStr, 10, 64)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "fee must be a non-negative integer"})
		}
	}

	// Upload before the transaction; an orphaned object on a later failed
	// registration is harmless, a registered row without its file is not.
	if file, ferr := c.FormFile("submission_file"); ferr == nil && file.Size > 0 {
		ext := filepath.Ext(file.Filename)
		key := fmt.Sprintf("submissions/%d/%s%s", competitionID, uuid.NewString(), ext)
		url, uerr := utils.UploadFileToR2(file, key)
		if uerr != nil {
			log.Printf("ERROR uploading submission for competition %d: %v", competitionID, uerr)
			return c.Status(500).JSON(fiber.Map{"error": "failed to upload submission file"})
		}
		submission = url
	}

	wallet := callerWallet(c)
	participant := &models.Participant{
		CompetitionID: competitionID,
		Wallet:        wallet,
		Name:          name,
		Submission:    submission,
		Eligible:      true,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		comp, err := lockCompetition(tx, competitionID)
		if err != nil {
			return err
		}
		if err := requireOpen(comp, time.Now()); err != nil {
			return err
		}
		if comp.Participants >= comp.Capacity {
			return models.ErrCapacityExceeded
		}
		if s.Policy.Registration == RegistrationSingleEntry {
			var existing int64
			if err := tx.Model(&models.Participant{}).
				Where("competition_id = ? AND wallet = ?", competitionID, wallet).
				Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return models.ErrAlreadyRegistered
			}
		}
		if err := tx.Create(participant).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Competition{}).Where("id = ?", competitionID).
			Updates(map[string]interface{}{
				"participants":  gorm.Expr("participants + 1"),
				"prize_balance": gorm.Expr("prize_balance + ?", fee),
			}).Error; err != nil {
			return err
		}
		return notify(tx, models.NotificationParticipantJoined, competitionID, wallet, participant.ID, name)
	})
	if err != nil {
		return respondLedgerError(c, err)
	}

	log.Printf("✅ Participant %d (%s) registered in competition %d, fee %d", participant.ID, wallet, competitionID, fee)
	return c.Status(201).JSON(participant)
}

// GetParticipant returns one participant by global id.
func (s *ParticipantService) GetParticipant(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid participant id"})
	}
	var p models.Participant
	if err := s.DB.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondLedgerError(c, models.ErrInvalidParticipant)
		}
		return respondLedgerError(c, err)
	}
	return c.JSON(p)
}

// ListParticipants returns a competition's participants in issuance order,
// the same order the finalize scan walks them.
func (s *ParticipantService) ListParticipants(c *fiber.Ctx) error {
	competitionID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid competition id"})
	}
	var count int64
	if err := s.DB.Model(&models.Competition{}).Where("id = ?", competitionID).Count(&count).Error; err != nil {
		return respondLedgerError(c, err)
	}
	if count == 0 {
		return respondLedgerError(c, models.ErrNotFound)
	}
	var participants []models.Participant
	if err := s.DB.Where("competition_id = ?", competitionID).
		Order("id ASC").
		Find(&participants).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch participants"})
	}
	return c.JSON(participants)
}
