package domain

import "errors"

// Errores base del core. Se envuelven con fmt.Errorf("...: %w") y se comparan con errors.Is.
var (
	ErrInvalidObservation   = errors.New("invalid observation")
	ErrInvalidActionEvent   = errors.New("invalid action event")
	ErrProfileInconsistency = errors.New("profile inconsistency")
	ErrUnknownSegment       = errors.New("unknown segment")
	ErrInvariantViolation   = errors.New("invariant violation")
	ErrMissingCrisisFlag    = errors.New("missing crisis flag")
	ErrUserNotFound         = errors.New("user not found")
)
