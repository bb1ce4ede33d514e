package services

import (
	"errors"
	"log"
	"strconv"
	"time"

	"competition-ledger/models"
	"competition-ledger/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FinalizeService struct {
	DB       *gorm.DB
	Payments *PaymentsClient
}

func NewFinalizeService(db *gorm.DB, payments *PaymentsClient) *FinalizeService {
	return &FinalizeService{DB: db, Payments: payments}
}

// selectWinner walks the competition's participants in ascending issuance
// order tracking the strict maximum floor average. The first participant to
// reach a given maximum keeps it on ties. Returns nil when nobody has a
// positive average (all unjudged, or all zeros with no judges).
func selectWinner(participants []models.Participant) *models.Participant {
	var winner *models.Participant
	var best uint64
	for i := range participants {
		p := &participants[i]
		if p.Wallet == "" || !p.Eligible {
			continue
		}
		avg := p.AverageScore()
		if winner == nil && p.JudgeCount > 0 {
			winner = p
			best = avg
			continue
		}
		if winner != nil && avg > best {
			winner = p
			best = avg
		}
	}
	return winner
}

// Finalize closes a competition: organizer-only, only after endTime, only
// once. Winner selection and the ledger-side effects (finalized flag,
// winner id, balance zeroing) commit atomically under the competition lock;
// the external transfer happens strictly after that commit, so a transfer
// rejection can never resurrect the balance or reopen the competition.
func (s *FinalizeService) Finalize(c *fiber.Ctx) error {
	competitionID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid competition id"})
	}
	caller := callerWallet(c)

	var (
		winner *models.Participant
		payout uint64
		comp   models.Competition
	)

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		locked, err := lockCompetition(tx, competitionID)
		if err != nil {
			return err
		}
		if locked.Organizer != caller {
			return models.ErrUnauthorized
		}
		if locked.Finalized {
			return models.ErrAlreadyFinalized
		}
		if !time.Now().After(locked.EndTime) {
			return models.ErrStillActive
		}

		var participants []models.Participant
		if err := tx.Where("competition_id = ?", competitionID).
			Order("id ASC").
			Find(&participants).Error; err != nil {
			return err
		}
		winner = selectWinner(participants)

		now := time.Now()
		updates := map[string]interface{}{
			"finalized":    true,
			"active":       false,
			"finalized_at": now,
		}
		var winnerID uint64
		if winner != nil {
			winnerID = winner.ID
			updates["winner_id"] = winner.ID
			if locked.PrizeBalance > 0 {
				// Checks-effects-interactions: the balance is zeroed here,
				// before any transfer is attempted.
				payout = locked.PrizeBalance
				updates["prize_balance"] = 0
			}
		}
		if err := tx.Model(&models.Competition{}).Where("id = ?", competitionID).
			Updates(updates).Error; err != nil {
			return err
		}
		comp = *locked
		comp.Finalized = true
		comp.Active = false
		comp.FinalizedAt = &now
		if winner != nil {
			comp.WinnerID = &winner.ID
		}
		if payout > 0 {
			comp.PrizeBalance = 0
		}
		return notify(tx, models.NotificationFinalized, competitionID, caller, winnerID, "")
	})
	if err != nil {
		return respondLedgerError(c, err)
	}

	if winner == nil || payout == 0 {
		log.Printf("✅ Competition %d finalized, no payout (winner=%v, balance=%d)", competitionID, winner != nil, payout)
		return c.JSON(fiber.Map{"competition": comp, "winner": winner, "payout": 0})
	}

	if _, known, werr := workers.GetWalletByAddress(s.DB, winner.Wallet); werr == nil && !known {
		log.Printf("⚠️  Winner wallet %s not in wallet mirror; attempting transfer anyway", winner.Wallet)
	}

	receipt := models.PayoutReceipt{
		ID:            uuid.NewString(),
		CompetitionID: competitionID,
		ParticipantID: winner.ID,
		Recipient:     winner.Wallet,
		Amount:        payout,
	}
	txID, terr := s.Payments.Transfer(c.Context(), competitionID, winner.Wallet, payout)
	if terr != nil {
		// The balance is already zeroed and stays that way: the loss is
		// final from the ledger's perspective.
		receipt.Status = models.PayoutStatusFailed
		receipt.FailureReason = terr.Error()
		if err := s.DB.Create(&receipt).Error; err != nil {
			log.Printf("ERROR recording failed payout receipt for competition %d: %v", competitionID, err)
		}
		log.Printf("❌ Payout of %d to %s failed for competition %d: %v", payout, winner.Wallet, competitionID, terr)
		return respondLedgerError(c, models.ErrTransferFailed)
	}

	receipt.Status = models.PayoutStatusSent
	receipt.TransactionID = txID
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&receipt).Error; err != nil {
			return err
		}
		return notify(tx, models.NotificationPayoutSent, competitionID, caller, winner.ID, txID)
	})
	if err != nil {
		log.Printf("ERROR recording payout receipt for competition %d: %v", competitionID, err)
	}

	log.Printf("✅ Competition %d finalized, paid %d to participant %d (%s), tx %s", competitionID, payout, winner.ID, winner.Wallet, txID)
	return c.JSON(fiber.Map{"competition": comp, "winner": winner, "payout": payout, "receipt": receipt})
}

// GetPayoutReceipt returns the single payout audit row for a competition.
func (s *FinalizeService) GetPayoutReceipt(c *fiber.Ctx) error {
	competitionID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid competition id"})
	}
	var receipt models.PayoutReceipt
	if err := s.DB.First(&receipt, "competition_id = ?", competitionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "no payout recorded for this competition"})
		}
		return respondLedgerError(c, err)
	}
	return c.JSON(receipt)
}
