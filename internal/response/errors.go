package response

import "net/http"

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials   ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired        ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid         ErrCode = "TOKEN_INVALID"
	ErrTokenExpired         ErrCode = "TOKEN_EXPIRED"
	ErrSessionInvalidated   ErrCode = "SESSION_INVALIDATED"
	ErrUpstreamUnauthorized ErrCode = "UPSTREAM_UNAUTHORIZED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"
	ErrNoConsoleRole    ErrCode = "NO_CONSOLE_ROLE"
	ErrSelfModification ErrCode = "SELF_MODIFICATION"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation           ErrCode = "VALIDATION_ERROR"
	ErrInvalidID            ErrCode = "INVALID_ID"
	ErrInvalidPayload       ErrCode = "INVALID_PAYLOAD"
	ErrStartInPast          ErrCode = "START_IN_PAST"
	ErrInvalidWindow        ErrCode = "INVALID_WINDOW"
	ErrWindowTooShort       ErrCode = "WINDOW_TOO_SHORT"
	ErrDistributionMismatch ErrCode = "DISTRIBUTION_MISMATCH"
	ErrNoCorrectAnswer      ErrCode = "NO_CORRECT_ANSWER"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Sessions ──────────────────────────────────────────────────────
	ErrSessionOngoingCancel ErrCode = "SESSION_ONGOING_CANCEL"
	ErrSessionOngoingEdit   ErrCode = "SESSION_ONGOING_EDIT"
	ErrSessionOngoingDelete ErrCode = "SESSION_ONGOING_DELETE"
	ErrSessionHasAttempts   ErrCode = "SESSION_HAS_ATTEMPTS"
	ErrSessionCancelled     ErrCode = "SESSION_CANCELLED"

	// ─── Composition ───────────────────────────────────────────────────
	ErrDraftStep          ErrCode = "DRAFT_WRONG_STEP"
	ErrPreviewIndex       ErrCode = "PREVIEW_INDEX_OUT_OF_RANGE"
	ErrDuplicateQuestion  ErrCode = "DUPLICATE_QUESTION"
	ErrChapterMismatch    ErrCode = "CHAPTER_MISMATCH"
	ErrEmptyPreview       ErrCode = "EMPTY_PREVIEW"
	ErrPreviewFailed      ErrCode = "PREVIEW_FAILED"
	ErrCompositionSave    ErrCode = "COMPOSITION_SAVE_FAILED"
	ErrSubjectNotSelected ErrCode = "SUBJECT_NOT_SELECTED"

	// ─── Concurrency & Rate Limiting ───────────────────────────────────
	ErrRequestInFlight   ErrCode = "REQUEST_IN_FLIGHT"
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrUpstreamUnavailable ErrCode = "UPSTREAM_UNAVAILABLE"
	ErrUpstream            ErrCode = "UPSTREAM_ERROR"
	ErrInternal            ErrCode = "INTERNAL_ERROR"
)

// Warning codes attached to successful responses.
const (
	WarnProctorAssignmentFailed = "PROCTOR_ASSIGNMENT_FAILED"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Incorrect email or password."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrUpstreamUnauthorized:
		return "Your credentials were rejected by the server. Please log in again."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrPermissionDenied:
		return "You do not have permission to perform this action."
	case ErrNoConsoleRole:
		return "This account has no teacher, proctor or admin role."
	case ErrSelfModification:
		return "You cannot remove your own admin access."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrStartInPast:
		return "Start time cannot be in the past."
	case ErrInvalidWindow:
		return "Start time must be before end time."
	case ErrWindowTooShort:
		return "A session must last at least one minute."
	case ErrDistributionMismatch:
		return "Chapter question counts do not add up to the total."
	case ErrNoCorrectAnswer:
		return "At least one answer must be marked correct."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "The request conflicts with the current state of the resource."

	// ─── Sessions ──────────────────────────────────────────────────────
	case ErrSessionOngoingCancel:
		return "Cannot cancel an ongoing session."
	case ErrSessionOngoingEdit:
		return "Cannot edit an ongoing session."
	case ErrSessionOngoingDelete:
		return "Cannot delete an ongoing session."
	case ErrSessionHasAttempts:
		return "Cannot delete a session with active attempts."
	case ErrSessionCancelled:
		return "A cancelled session cannot be edited."

	// ─── Composition ───────────────────────────────────────────────────
	case ErrDraftStep:
		return "This action is not available at the current step."
	case ErrPreviewIndex:
		return "Question position is out of range."
	case ErrDuplicateQuestion:
		return "This question is already in the exam."
	case ErrChapterMismatch:
		return "The replacement must come from the same chapter."
	case ErrEmptyPreview:
		return "The exam has no questions."
	case ErrPreviewFailed:
		return "Could not generate the question preview."
	case ErrCompositionSave:
		return "Could not save the exam."
	case ErrSubjectNotSelected:
		return "Select a subject first."

	// ─── Concurrency & Rate Limiting ───────────────────────────────────
	case ErrRequestInFlight:
		return "The same request is already being processed."
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrUpstreamUnavailable:
		return "Could not reach server."
	case ErrUpstream:
		return "The server could not complete the request."
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}

// StatusFor returns the HTTP status a code is normally sent with.
func StatusFor(code ErrCode) int {
	switch code {
	case ErrInvalidCredentials, ErrTokenRequired, ErrTokenInvalid, ErrTokenExpired,
		ErrSessionInvalidated, ErrUpstreamUnauthorized:
		return http.StatusUnauthorized
	case ErrPermissionDenied, ErrNoConsoleRole, ErrSelfModification:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict, ErrSessionOngoingCancel, ErrSessionOngoingEdit, ErrSessionOngoingDelete,
		ErrSessionHasAttempts, ErrSessionCancelled, ErrRequestInFlight, ErrDraftStep:
		return http.StatusConflict
	case ErrRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrUpstreamUnavailable, ErrUpstream, ErrPreviewFailed, ErrCompositionSave:
		return http.StatusBadGateway
	case ErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
