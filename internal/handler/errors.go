package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-console/internal/composition"
	"github.com/stemsi/exstem-console/internal/repository"
	"github.com/stemsi/exstem-console/internal/response"
	"github.com/stemsi/exstem-console/internal/schedule"
	"github.com/stemsi/exstem-console/internal/service"
)

// apiFailure is the client-facing form of an error.
type apiFailure struct {
	Status  int
	Code    response.ErrCode
	Message string
	Details interface{}
}

// sentinelCodes maps local errors to their codes. Order does not matter:
// each error matches at most one entry.
var sentinelCodes = []struct {
	err  error
	code response.ErrCode
}{
	{schedule.ErrStartInPast, response.ErrStartInPast},
	{schedule.ErrInvalidWindow, response.ErrInvalidWindow},
	{schedule.ErrWindowTooShort, response.ErrWindowTooShort},
	{schedule.ErrMissingEndTime, response.ErrValidation},
	{schedule.ErrInvalidDuration, response.ErrValidation},

	{composition.ErrIndexOutOfRange, response.ErrPreviewIndex},
	{composition.ErrDuplicateQuestion, response.ErrDuplicateQuestion},
	{composition.ErrChapterMismatch, response.ErrChapterMismatch},
	{composition.ErrEmptyPreview, response.ErrEmptyPreview},

	{service.ErrWrongStep, response.ErrDraftStep},
	{service.ErrSubjectNotSelected, response.ErrSubjectNotSelected},

	{service.ErrCancelOngoing, response.ErrSessionOngoingCancel},
	{service.ErrEditOngoing, response.ErrSessionOngoingEdit},
	{service.ErrDeleteOngoing, response.ErrSessionOngoingDelete},
	{service.ErrSessionHasAttempts, response.ErrSessionHasAttempts},
	{service.ErrSessionCancelled, response.ErrSessionCancelled},

	{service.ErrInvalidCredentials, response.ErrInvalidCredentials},
	{service.ErrNoConsoleRole, response.ErrNoConsoleRole},
	{service.ErrSessionInvalidated, response.ErrSessionInvalidated},
	{service.ErrNoCorrectAnswer, response.ErrNoCorrectAnswer},
	{service.ErrSelfModification, response.ErrSelfModification},

	{repository.ErrDraftNotFound, response.ErrNotFound},
}

// classify turns a service error into the status, code and message sent to the browser.
func classify(err error) apiFailure {
	var distErr *composition.DistributionError
	if errors.As(err, &distErr) {
		return apiFailure{
			Status:  http.StatusBadRequest,
			Code:    response.ErrDistributionMismatch,
			Message: distErr.Error(),
			Details: gin.H{
				"reason":     distErr.Reason,
				"actual_sum": distErr.ActualSum,
				"required":   distErr.Required,
				"mismatch":   distErr.Mismatch(),
			},
		}
	}

	// Step failures carry the upstream reason but keep their own code.
	for _, step := range []struct {
		err  error
		code response.ErrCode
	}{
		{service.ErrPreviewFailed, response.ErrPreviewFailed},
		{service.ErrCompositionSave, response.ErrCompositionSave},
	} {
		if errors.Is(err, step.err) {
			f := apiFailure{Status: response.StatusFor(step.code), Code: step.code, Message: response.GetMessage(step.code)}
			if msg := upstreamMessage(err); msg != "" {
				f.Message = f.Message + " " + msg
			}
			return f
		}
	}

	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			msg := response.GetMessage(s.code)
			if s.code == response.ErrValidation {
				msg = s.err.Error()
			}
			return apiFailure{Status: response.StatusFor(s.code), Code: s.code, Message: msg}
		}
	}

	if errors.Is(err, repository.ErrUpstreamUnavailable) {
		return apiFailure{Status: http.StatusBadGateway, Code: response.ErrUpstreamUnavailable, Message: response.GetMessage(response.ErrUpstreamUnavailable)}
	}

	var apiErr *repository.APIError
	if errors.As(err, &apiErr) {
		return classifyUpstream(apiErr)
	}

	return apiFailure{Status: http.StatusInternalServerError, Code: response.ErrInternal, Message: response.GetMessage(response.ErrInternal)}
}

func classifyUpstream(apiErr *repository.APIError) apiFailure {
	withMessage := func(status int, code response.ErrCode) apiFailure {
		msg := apiErr.Message
		if msg == "" {
			msg = response.GetMessage(code)
		}
		return apiFailure{Status: status, Code: code, Message: msg}
	}

	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		return apiFailure{Status: http.StatusUnauthorized, Code: response.ErrUpstreamUnauthorized, Message: response.GetMessage(response.ErrUpstreamUnauthorized)}
	case http.StatusForbidden:
		return apiFailure{Status: http.StatusForbidden, Code: response.ErrPermissionDenied, Message: response.GetMessage(response.ErrPermissionDenied)}
	case http.StatusNotFound:
		return withMessage(http.StatusNotFound, response.ErrNotFound)
	case http.StatusConflict:
		return withMessage(http.StatusConflict, response.ErrConflict)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return withMessage(http.StatusBadRequest, response.ErrValidation)
	default:
		return withMessage(http.StatusBadGateway, response.ErrUpstream)
	}
}

func upstreamMessage(err error) string {
	var apiErr *repository.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, repository.ErrUpstreamUnavailable) {
		return response.GetMessage(response.ErrUpstreamUnavailable)
	}
	return ""
}

// respondError writes err as an error envelope. Unexpected errors are logged.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	f := classify(err)
	if f.Status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Str("request_id", response.RequestID(c)).
			Msg("request failed")
	}
	response.FailWithDetails(c, f.Status, f.Code, f.Message, f.Details)
}

// paramID parses a positive integer path parameter, writing INVALID_ID on failure.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
