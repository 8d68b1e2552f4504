package services

import "errors"

// Error kinds surfaced by the settlement and governance core. Handlers map
// these to HTTP statuses with errors.Is; services wrap causes with %w.
var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient reserve balance")
	ErrExceedsPerUserCap = errors.New("amount exceeds per-user redemption cap")
	ErrExceedsDailyCap   = errors.New("amount exceeds daily redemption cap")
	ErrNotPending        = errors.New("request is not pending")
	ErrNotFound          = errors.New("record not found")
	ErrMembershipInactive = errors.New("membership is not active")
	ErrAlreadySettled    = errors.New("request already settled")
	ErrReasonRequired    = errors.New("reason is required")

	ErrForbidden     = errors.New("operation not permitted for caller")
	ErrBadTransition = errors.New("invalid state transition")

	ErrInsufficientCustody = errors.New("insufficient custody balance")
	ErrInsufficientReserve = errors.New("insufficient cached reserve")

	ErrZeroAddress              = errors.New("destination address is empty")
	ErrZeroAmount               = errors.New("amount must be non-zero")
	ErrInsufficientVaultBalance = errors.New("insufficient vault balance")

	ErrWouldLeaveWithoutAdmin = errors.New("transfer would leave no admin")
)
