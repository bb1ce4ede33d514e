package handlers

import (
	"competition-ledger/middleware"
	"competition-ledger/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCompetitionRoutes(
	app *fiber.App,
	competitionService *services.CompetitionService,
	participantService *services.ParticipantService,
	judgeService *services.JudgeService,
	scoreService *services.ScoreService,
	finalizeService *services.FinalizeService,
	notificationService *services.NotificationService,
) {
	// 🔓 Public queries — no caller identity required
	app.Get("/competitions", competitionService.ListCompetitionsMini)
	app.Get("/competitions/total", competitionService.TotalCompetitions)
	app.Get("/competitions/slug/:slug", competitionService.GetCompetitionBySlug)
	app.Get("/competitions/:id", competitionService.GetCompetition)
	app.Get("/competitions/:id/participants", participantService.ListParticipants)
	app.Get("/competitions/:id/scoreboard", scoreService.Scoreboard)
	app.Get("/competitions/:id/judges/:wallet", judgeService.IsAuthorizedJudge)
	app.Get("/competitions/:id/payout", finalizeService.GetPayoutReceipt)
	app.Get("/competitions/:id/notifications", notificationService.ListNotifications)
	app.Get("/competitions/:id/notifications/stream", notificationService.StreamNotificationsSSE)
	app.Get("/participants/:id", participantService.GetParticipant)
	app.Get("/participants/:id/average", scoreService.AverageScore)

	// 🔐 Mutations — wallet identity from gateway headers
	secured := app.Group("/", middleware.CallerContextMiddleware())
	secured.Post("/competitions", competitionService.CreateCompetition)
	secured.Post("/competitions/:id/register", participantService.Register)
	secured.Post("/competitions/:id/judges", judgeService.AuthorizeJudge)          // organizer
	secured.Post("/competitions/:id/scores", scoreService.SubmitScore)            // authorized judge
	secured.Post("/competitions/:id/finalize", finalizeService.Finalize)          // organizer

	// 🔒 Admin-only
	admin := secured.Group("/admin")
	admin.Patch("/competitions/:id/pause", competitionService.PauseCompetition)
}
