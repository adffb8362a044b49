package service

import "errors"

// Domain errors. Handlers map them to response codes with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrExamNotAvailable  = errors.New("exam is not available")
	ErrNoQuestions       = errors.New("exam has no questions")
	ErrExamLocked        = errors.New("exam must be purchased before starting")
	ErrAttemptNotActive  = errors.New("attempt is not in progress")
	ErrNoActiveAttempt   = errors.New("no attempt in progress for this exam")
	ErrAttemptUnfinished = errors.New("attempt has not been submitted")
	ErrInvalidOption     = errors.New("option must be one of A, B, C or D")
	ErrUnknownQuestion   = errors.New("question does not belong to this attempt")
	ErrDuplicateOrder    = errors.New("order already used in this exam")
	ErrAttemptInProgress = errors.New("exam has attempts in progress")

	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrAlreadyPurchased    = errors.New("exam already purchased")
	ErrExamIsFree          = errors.New("exam is free")
	ErrConflict            = errors.New("already exists")
)
