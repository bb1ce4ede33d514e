package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"competition-ledger/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegistrationPolicy controls duplicate entries per wallet per competition.
type RegistrationPolicy string

const (
	RegistrationSingleEntry RegistrationPolicy = "single"
	RegistrationMultiEntry  RegistrationPolicy = "multi"
)

// ScoreScope controls the granularity of the has-scored flag.
type ScoreScope string

const (
	// ScoreScopeCompetition: one accepted score per judge per competition,
	// regardless of which participant it targets.
	ScoreScopeCompetition ScoreScope = "competition"
	// ScoreScopeParticipant: one accepted score per judge per participant.
	ScoreScopeParticipant ScoreScope = "participant"
)

// Policy holds the deployment-profile switches, loaded from env at boot.
type Policy struct {
	Registration RegistrationPolicy
	ScoreScope   ScoreScope
}

func LoadPolicy() Policy {
	p := Policy{Registration: RegistrationSingleEntry, ScoreScope: ScoreScopeCompetition}
	switch RegistrationPolicy(os.Getenv("REGISTRATION_POLICY")) {
	case RegistrationMultiEntry:
		p.Registration = RegistrationMultiEntry
	case RegistrationSingleEntry, "":
	default:
		log.Printf("⚠️  Unknown REGISTRATION_POLICY %q, using %q", os.Getenv("REGISTRATION_POLICY"), RegistrationSingleEntry)
	}
	switch ScoreScope(os.Getenv("SCORE_SCOPE")) {
	case ScoreScopeParticipant:
		p.ScoreScope = ScoreScopeParticipant
	case ScoreScopeCompetition, "":
	default:
		log.Printf("⚠️  Unknown SCORE_SCOPE %q, using %q", os.Getenv("SCORE_SCOPE"), ScoreScopeCompetition)
	}
	return p
}

type CompetitionService struct {
	DB     *gorm.DB
	Policy Policy
}

func NewCompetitionService(db *gorm.DB, policy Policy) *CompetitionService {
	return &CompetitionService{DB: db, Policy: policy}
}

// callerWallet returns the authenticated wallet address set by middleware.
func callerWallet(c *fiber.Ctx) string {
	if w, ok := c.Locals("user_id").(string); ok {
		return w
	}
	return ""
}

func callerIsAdmin(c *fiber.Ctx) bool {
	roles, ok := c.Locals("user_roles").([]string)
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == "admin" {
			return true
		}
	}
	return false
}

// respondLedgerError maps a typed ledger failure to the JSON error body.
// Anything else is a DB/infra error and reported as 500.
func respondLedgerError(c *fiber.Ctx, err error) error {
	var lerr *models.LedgerError
	if errors.As(err, &lerr) {
		return c.Status(lerr.Status).JSON(fiber.Map{"error": lerr.Msg, "code": lerr.Code})
	}
	log.Printf("ERROR %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

// lockCompetition fetches the competition row FOR UPDATE inside tx. Every
// mutating operation goes through this lock, which serializes writers per
// competition.
func lockCompetition(tx *gorm.DB, id uint64) (*models.Competition, error) {
	var comp models.Competition
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&comp, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &comp, nil
}

// requireOpen is the acceptance gate for registration and authorization.
func requireOpen(comp *models.Competition, now time.Time) error {
	if !comp.Active {
		return models.ErrNotActive
	}
	if now.Before(comp.StartTime) {
		return models.ErrNotStarted
	}
	if !now.Before(comp.EndTime) {
		return models.ErrEnded
	}
	return nil
}

// notify appends a notification row inside the same transaction as the
// mutation it describes, so feed and state never disagree.
func notify(tx *gorm.DB, kind models.NotificationKind, competitionID uint64, actor string, target uint64, detail string) error {
	return tx.Create(&models.Notification{
		ID:            uuid.NewString(),
		Kind:          kind,
		CompetitionID: competitionID,
		Actor:         actor,
		Target:        target,
		Detail:        detail,
	}).Error
}

// CreateCompetition opens a new competition. The caller becomes organizer;
// funding_amount is escrowed into the prize balance immediately.
func (s *CompetitionService) CreateCompetition(c *fiber.Ctx) error {
	var req struct {
		Name          string `json:"name"`
		Description   string `json:"description"`
		StartTime     string `json:"start_time"` // RFC3339
		EndTime       string `json:"end_time"`
		Capacity      uint   `json:"capacity"`
		FundingAmount uint64 `json:"funding_amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Name == "" || req.StartTime == "" || req.EndTime == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name, start_time and end_time are required"})
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid start_time (use RFC3339)"})
	}
	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid end_time (use RFC3339)"})
	}

	now := time.Now()
	if !startTime.After(now) || !endTime.After(startTime) {
		return respondLedgerError(c, models.ErrInvalidTimeWindow)
	}
	if req.Capacity == 0 {
		return respondLedgerError(c, models.ErrInvalidCapacity)
	}

	organizer := callerWallet(c)
	comp := &models.Competition{
		Name:         req.Name,
		Description:  req.Description,
		Organizer:    organizer,
		StartTime:    startTime,
		EndTime:      endTime,
		Capacity:     req.Capacity,
		Active:       true,
		Finalized:    false,
		PrizeBalance: req.FundingAmount,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comp).Error; err != nil {
			return err
		}
		// Slug needs the issued id to stay unique across same-name entries.
		comp.Slug = fmt.Sprintf("%s-%d", slug.Make(req.Name), comp.ID)
		if err := tx.Model(comp).Update("slug", comp.Slug).Error; err != nil {
			return err
		}
		return notify(tx, models.NotificationCompetitionCreated, comp.ID, organizer, 0, comp.Name)
	})
	if err != nil {
		return respondLedgerError(c, err)
	}

	log.Printf("✅ Competition %d (%s) created by %s, funded %d", comp.ID, comp.Slug, organizer, req.FundingAmount)
	return c.Status(201).JSON(comp)
}

// PauseCompetition sets active=false. Admin-only; a no-op when the
// competition is already paused. Finalized is untouched.
func (s *CompetitionService) PauseCompetition(c *fiber.Ctx) error {
	if !callerIsAdmin(c) {
		return respondLedgerError(c, models.ErrUnauthorized)
	}
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid competition id"})
	}

	var comp models.Competition
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		locked, err := lockCompetition(tx, id)
		if err != nil {
			return err
		}
		comp = *locked
		if !comp.Active {
			return nil // already paused
		}
		comp.Active = false
		if err := tx.Model(&models.Competition{}).Where("id = ?", id).
			Update("active", false).Error; err != nil {
			return err
		}
		return notify(tx, models.NotificationCompetitionPaused, id, callerWallet(c), 0, "")
	})
	if err != nil {
		return respondLedgerError(c, err)
	}
	return c.JSON(comp)
}

// GetCompetition returns a snapshot by id.
func (s *CompetitionService) GetCompetition(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid competition id"})
	}
	var comp models.Competition
	if err := s.DB.First(&comp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondLedgerError(c, models.ErrNotFound)
		}
		return respondLedgerError(c, err)
	}
	comp.AvailableSlots = int64(comp.Capacity) - int64(comp.Participants)
	return c.JSON(comp)
}

// GetCompetitionBySlug is the public share-link lookup.
func (s *CompetitionService) GetCompetitionBySlug(c *fiber.Ctx) error {
	var comp models.Competition
	if err := s.DB.First(&comp, "slug = ?", c.Params("slug")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondLedgerError(c, models.ErrNotFound)
		}
		return respondLedgerError(c, err)
	}
	comp.AvailableSlots = int64(comp.Capacity) - int64(comp.Participants)
	return c.JSON(comp)
}

// ListCompetitionsMini returns the brief index view, newest first.
func (s *CompetitionService) ListCompetitionsMini(c *fiber.Ctx) error {
	var comps []models.MiniCompetition
	query := `
        SELECT
            id, name, slug, organizer, start_time, end_time,
            capacity, participants, active, finalized, prize_balance, created_at
        FROM competitions
        ORDER BY created_at DESC
    `
	if err := s.DB.Raw(query).Scan(&comps).Error; err != nil {
		log.Printf("ERROR fetching mini competitions: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch competitions"})
	}
	return c.JSON(comps)
}

// TotalCompetitions reports how many ids have been issued.
func (s *CompetitionService) TotalCompetitions(c *fiber.Ctx) error {
	var count int64
	if err := s.DB.Model(&models.Competition{}).Count(&count).Error; err != nil {
		return respondLedgerError(c, err)
	}
	return c.JSON(fiber.Map{"total": count})
}
