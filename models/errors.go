package models

import (
	"github.com/gofiber/fiber/v2"
)

// LedgerError is a typed precondition failure. Every rejected operation
// maps to exactly one of these; no operation that returns one has applied
// any state change.
type LedgerError struct {
	Code   string
	Status int
	Msg    string
}

func (e *LedgerError) Error() string { return e.Msg }

var (
	ErrNotFound           = &LedgerError{"NOT_FOUND", fiber.StatusNotFound, "competition not found"}
	ErrNotActive          = &LedgerError{"NOT_ACTIVE", fiber.StatusConflict, "competition is paused"}
	ErrNotStarted         = &LedgerError{"NOT_STARTED", fiber.StatusConflict, "competition has not started"}
	ErrEnded              = &LedgerError{"ENDED", fiber.StatusConflict, "competition has ended"}
	ErrInvalidTimeWindow  = &LedgerError{"INVALID_TIME_WINDOW", fiber.StatusBadRequest, "start_time must be in the future and end_time after start_time"}
	ErrInvalidCapacity    = &LedgerError{"INVALID_CAPACITY", fiber.StatusBadRequest, "capacity must be greater than zero"}
	ErrCapacityExceeded   = &LedgerError{"CAPACITY_EXCEEDED", fiber.StatusConflict, "competition is full"}
	ErrAlreadyRegistered  = &LedgerError{"ALREADY_REGISTERED", fiber.StatusConflict, "wallet already registered in this competition"}
	ErrAlreadyAuthorized  = &LedgerError{"ALREADY_AUTHORIZED", fiber.StatusConflict, "judge already authorized for this competition"}
	ErrNotAuthorizedJudge = &LedgerError{"NOT_AUTHORIZED_JUDGE", fiber.StatusForbidden, "caller is not an authorized judge for this competition"}
	ErrInvalidScore       = &LedgerError{"INVALID_SCORE", fiber.StatusBadRequest, "score must be between 0 and 100"}
	ErrInvalidParticipant = &LedgerError{"INVALID_PARTICIPANT", fiber.StatusBadRequest, "participant does not exist in this competition"}
	ErrAlreadyScored      = &LedgerError{"ALREADY_SCORED", fiber.StatusConflict, "judge has already scored in this competition"}
	ErrStillActive        = &LedgerError{"STILL_ACTIVE", fiber.StatusConflict, "competition has not ended yet"}
	ErrAlreadyFinalized   = &LedgerError{"ALREADY_FINALIZED", fiber.StatusConflict, "competition is already finalized"}
	ErrTransferFailed     = &LedgerError{"TRANSFER_FAILED", fiber.StatusBadGateway, "payout transfer was rejected by the payment service"}
	ErrUnauthorized       = &LedgerError{"UNAUTHORIZED", fiber.StatusForbidden, "caller does not hold the required role"}
)
