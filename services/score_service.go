package services

import (
	"errors"
	"log"
	"strconv"

	"competition-ledger/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ScoreService struct {
	DB     *gorm.DB
	Policy Policy
}

func NewScoreService(db *gorm.DB, policy Policy) *ScoreService {
	return &ScoreService{DB: db, Policy: policy}
}

// SubmitScore records one score from an authorized judge. Scoring is gated
// on competition existence only, not on the open window: judging may run
// after entries close. The has-scored flag flips inside the same locked
// transaction that writes the entry and bumps the aggregates, so two racing
// submissions resolve to one accepted and one AlreadyScored.
func (s *ScoreService) SubmitScore(c *fiber.Ctx) error {
	competitionID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid competition id"})
	}

	var req struct {
		ParticipantID uint64 `json:"participant_id"`
		Score         uint64 `json:"score"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	judge := callerWallet(c)
	entry := &models.ScoreEntry{
		ID:            uuid.NewString(),
		CompetitionID: competitionID,
		JudgeWallet:   judge,
		ParticipantID: req.ParticipantID,
		Score:         req.Score,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		comp, err := lockCompetition(tx, competitionID)
		if err != nil {
			return err
		}
		if comp.Finalized {
			return models.ErrAlreadyFinalized
		}

		authorized, err := isAuthorizedJudge(tx, competitionID, judge)
		if err != nil {
			return err
		}
		if !authorized {
			return models.ErrNotAuthorizedJudge
		}
		if req.Score > models.MaxScore {
			return models.ErrInvalidScore
		}

		// The participant must exist and belong to this competition; a
		// valid-looking id from another competition is rejected the same
		// way as one that was never issued.
		var participant models.Participant
		if err := tx.First(&participant, "id = ?", req.ParticipantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrInvalidParticipant
			}
			return err
		}
		if participant.CompetitionID != competitionID {
			return models.ErrInvalidParticipant
		}

		flagQuery := tx.Model(&models.JudgeScoreFlag{}).
			Where("competition_id = ? AND judge_wallet = ?", competitionID, judge)
		if s.Policy.ScoreScope == ScoreScopeParticipant {
			flagQuery = flagQuery.Where("participant_id = ?", req.ParticipantID)
		}
		var scored int64
		if err := flagQuery.Count(&scored).Error; err != nil {
			return err
		}
		if scored > 0 {
			return models.ErrAlreadyScored
		}

		flag := models.JudgeScoreFlag{CompetitionID: competitionID, JudgeWallet: judge}
		if s.Policy.ScoreScope == ScoreScopeParticipant {
			flag.ParticipantID = req.ParticipantID
		}
		if err := tx.Create(&flag).Error; err != nil {
			return err
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Participant{}).Where("id = ?", req.ParticipantID).
			Updates(map[string]interface{}{
				"total_score": gorm.Expr("total_score + ?", req.Score),
				"judge_count": gorm.Expr("judge_count + 1"),
			}).Error; err != nil {
			return err
		}
		// First accepted score in this competition counts it as judged.
		if s.Policy.ScoreScope == ScoreScopeCompetition {
			if err := tx.Model(&models.Judge{}).Where("wallet = ?", judge).
				Update("competitions_judged", gorm.Expr("competitions_judged + 1")).Error; err != nil {
				return err
			}
		}
		return notify(tx, models.NotificationScoreSubmitted, competitionID, judge, req.ParticipantID, "")
	})
	if err != nil {
		return respondLedgerError(c, err)
	}

	log.Printf("✅ Judge %s scored participant %d in competition %d: %d", judge, req.ParticipantID, competitionID, req.Score)
	return c.Status(201).JSON(entry)
}

// AverageScore returns the floor average for one participant, 0 when no
// judge has scored them. Exposed live; the read never perturbs finalize,
// which recomputes from the stored aggregates under its own lock.
func (s *ScoreService) AverageScore(c *fiber.Ctx) error {
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
	return c.JSON(fiber.Map{
		"participant_id": p.ID,
		"total_score":    p.TotalScore,
		"judge_count":    p.JudgeCount,
		"average_score":  p.AverageScore(),
	})
}

// Scoreboard returns per-participant aggregates for one competition in
// issuance order.
func (s *ScoreService) Scoreboard(c *fiber.Ctx) error {
	competitionID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid competition id"})
	}
	var rows []models.ScoreboardRow
	query := `
        SELECT
            id AS participant_id,
            name,
            wallet,
            total_score,
            judge_count,
            CASE WHEN judge_count = 0 THEN 0 ELSE total_score / judge_count END AS average_score
        FROM participants
        WHERE competition_id = ?
        ORDER BY id ASC
    `
	if err := s.DB.Raw(query, competitionID).Scan(&rows).Error; err != nil {
		log.Printf("ERROR fetching scoreboard for competition %d: %v", competitionID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch scoreboard"})
	}
	return c.JSON(rows)
}
