package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrAdminAccessOnly ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrExamNotAvailable  ErrCode = "EXAM_NOT_AVAILABLE"
	ErrNoQuestions       ErrCode = "NO_QUESTIONS"
	ErrExamLocked        ErrCode = "EXAM_LOCKED"
	ErrAttemptNotActive  ErrCode = "ATTEMPT_NOT_ACTIVE"
	ErrInvalidOption     ErrCode = "INVALID_OPTION"
	ErrUnknownQuestion   ErrCode = "UNKNOWN_QUESTION"
	ErrDuplicateOrder    ErrCode = "DUPLICATE_QUESTION_ORDER"
	ErrAttemptInProgress ErrCode = "ATTEMPT_IN_PROGRESS"
	ErrNoActiveAttempt   ErrCode = "NO_ACTIVE_ATTEMPT"
	ErrAttemptUnfinished ErrCode = "ATTEMPT_NOT_FINISHED"

	// ─── Credits ───────────────────────────────────────────────────────
	ErrInsufficientCredits ErrCode = "INSUFFICIENT_CREDITS"
	ErrAlreadyPurchased    ErrCode = "ALREADY_PURCHASED"
	ErrExamIsFree          ErrCode = "EXAM_IS_FREE"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

var messages = map[ErrCode]string{
	ErrInvalidCredentials: "Email or password is incorrect.",
	ErrTokenRequired:      "Authentication token is required.",
	ErrTokenInvalid:       "Authentication token is invalid or expired.",

	ErrForbidden:       "You do not have access to this resource.",
	ErrAdminAccessOnly: "This resource is restricted to administrators.",

	ErrValidation:     "Validation failed. Please check your input.",
	ErrInvalidID:      "Invalid ID format.",
	ErrInvalidPayload: "Invalid request payload.",

	ErrNotFound: "Resource not found.",
	ErrConflict: "Resource already exists.",

	ErrExamNotAvailable:  "This exam is not currently available.",
	ErrNoQuestions:       "No questions are available for this exam.",
	ErrExamLocked:        "Purchase this exam before starting it.",
	ErrAttemptNotActive:  "This attempt is no longer in progress.",
	ErrInvalidOption:     "Selected option must be one of A, B, C or D.",
	ErrUnknownQuestion:   "Question does not belong to this attempt.",
	ErrDuplicateOrder:    "Another question already uses this order in the exam.",
	ErrAttemptInProgress: "The exam cannot be changed while attempts are in progress.",
	ErrNoActiveAttempt:   "Start the exam before submitting.",
	ErrAttemptUnfinished: "Results are available once the attempt is submitted.",

	ErrInsufficientCredits: "Not enough credits for this purchase.",
	ErrAlreadyPurchased:    "You already own this exam.",
	ErrExamIsFree:          "This exam is free and does not need to be purchased.",

	ErrFileRequired:    "A file upload is required.",
	ErrUnsupportedFile: "Unsupported file type.",
	ErrFileTooLarge:    "File exceeds the size limit.",

	ErrRateLimitExceeded: "Too many requests. Please try again later.",

	ErrInternal: "An internal server error occurred.",
}

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "An unexpected error occurred."
}
