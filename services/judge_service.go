package services

import (
	"errors"
	"log"
	"strconv"
	"time"

	"competition-ledger/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type JudgeService struct {
	DB *gorm.DB
}

func NewJudgeService(db *gorm.DB) *JudgeService {
	return &JudgeService{DB: db}
}

// AuthorizeJudge grants a wallet scoring rights for one competition.
// Organizer-only, and only while the competition is open: grants on a
// paused, not-yet-started or ended competition are rejected, even though
// already-granted judges may keep scoring after the window closes. The
// global judge row is created on the first-ever grant; the per-competition
// authorization is its own row, so the same wallet needs a separate grant
// in every competition it judges.
func (s *JudgeService) AuthorizeJudge(c *fiber.Ctx) error {
	competitionID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid competition id"})
	}

	var req struct {
		Wallet string `json:"wallet"`
		Name   string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Wallet == "" {
		return c.Status(400).JSON(fiber.Map{"error": "wallet is required"})
	}

	caller := callerWallet(c)
	var auth models.JudgeAuthorization

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		comp, err := lockCompetition(tx, competitionID)
		if err != nil {
			return err
		}
		if comp.Organizer != caller {
			return models.ErrUnauthorized
		}
		if err := requireOpen(comp, time.Now()); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.JudgeAuthorization{}).
			Where("competition_id = ? AND judge_wallet = ?", competitionID, req.Wallet).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return models.ErrAlreadyAuthorized
		}

		var judge models.Judge
		if err := tx.First(&judge, "wallet = ?", req.Wallet).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			judge = models.Judge{Wallet: req.Wallet, Name: req.Name, Authorized: true}
			if err := tx.Create(&judge).Error; err != nil {
				return err
			}
		}

		auth = models.JudgeAuthorization{
			CompetitionID: competitionID,
			JudgeWallet:   req.Wallet,
			GrantedBy:     caller,
		}
		if err := tx.Create(&auth).Error; err != nil {
			return err
		}
		return notify(tx, models.NotificationJudgeAuthorized, competitionID, caller, 0, req.Wallet)
	})
	if err != nil {
		return respondLedgerError(c, err)
	}

	log.Printf("✅ Judge %s authorized for competition %d by %s", req.Wallet, competitionID, caller)
	return c.Status(201).JSON(auth)
}

// IsAuthorizedJudge is a pure lookup; it never fails, unknown pairs are
// simply false.
func (s *JudgeService) IsAuthorizedJudge(c *fiber.Ctx) error {
	competitionID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid competition id"})
	}
	wallet := c.Params("wallet")

	var count int64
	if err := s.DB.Model(&models.JudgeAuthorization{}).
		Where("competition_id = ? AND judge_wallet = ?", competitionID, wallet).
		Count(&count).Error; err != nil {
		return respondLedgerError(c, err)
	}
	return c.JSON(fiber.Map{"competition_id": competitionID, "wallet": wallet, "authorized": count > 0})
}

// isAuthorizedJudge is the in-transaction variant used by the score ledger.
func isAuthorizedJudge(tx *gorm.DB, competitionID uint64, wallet string) (bool, error) {
	var count int64
	err := tx.Model(&models.JudgeAuthorization{}).
		Where("competition_id = ? AND judge_wallet = ?", competitionID, wallet).
		Count(&count).Error
	return count > 0, err
}
