package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/livepoll/internal/domain"
	apperrors "github.com/pscheid92/livepoll/internal/platform/errors"
)

func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			return HandleError(c, err)
		}
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}
	if err.Reason != "" {
		attrs = append(attrs, "reason", err.Reason)
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	ctx := c.Request().Context()
	switch err.Type {
	case apperrors.TypeValidation:
		slog.InfoContext(ctx, "Validation error", attrs...)
	case apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case apperrors.TypeConflict:
		slog.InfoContext(ctx, "Conflict", attrs...)
	case apperrors.TypeRateLimited:
		slog.WarnContext(ctx, "Rate limited", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	case apperrors.TypeUnavailable:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Dependency unavailable", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

func HandleError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	structuredErr := apperrors.AsStructuredError(err)
	logError(c, structuredErr)
	if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
		return fmt.Errorf("failed to write error response: %w", err)
	}
	return nil
}

// WrapHTTPError converts an echo error into a structured one.
func WrapHTTPError(httpErr *echo.HTTPError) *apperrors.Error {
	message := http.StatusText(httpErr.Code)
	if msg, ok := httpErr.Message.(string); ok {
		message = msg
	}
	if message == "" {
		message = "internal server error"
	}

	var errType apperrors.ErrorType
	switch httpErr.Code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		errType = apperrors.TypeValidation
	case http.StatusNotFound:
		errType = apperrors.TypeNotFound
	case http.StatusConflict:
		errType = apperrors.TypeConflict
	case http.StatusTooManyRequests:
		errType = apperrors.TypeRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		errType = apperrors.TypeUnavailable
	default:
		errType = apperrors.TypeInternal
	}

	err := &apperrors.Error{
		Type:    errType,
		Message: message,
		Status:  httpErr.Code,
		Context: make(map[string]any),
	}

	if httpErr.Internal != nil {
		err.Cause = httpErr.Internal
	}

	return err
}

// voteError maps a vote rejection to its HTTP form. A duplicate is a 400 with
// reason DuplicateVote; store failures are retryable 500s.
func voteError(err error) *apperrors.Error {
	reason := domain.RejectionReason(err)
	switch {
	case errors.Is(err, domain.ErrMissingFields), errors.Is(err, domain.ErrInvalidRating):
		return apperrors.ValidationError(err.Error()).WithReason(reason)
	case errors.Is(err, domain.ErrQuestionNotFound):
		return apperrors.NotFoundError(err.Error()).WithReason(reason)
	case errors.Is(err, domain.ErrVotingClosed):
		return apperrors.ValidationError(err.Error()).WithReason(reason)
	case errors.Is(err, domain.ErrDuplicateVote):
		return apperrors.ConflictError(err.Error()).WithReason(reason).WithStatus(http.StatusBadRequest)
	case errors.Is(err, domain.ErrStoreUnavailable):
		return apperrors.InternalError("failed to record vote", err).WithReason(reason).AsRetryable()
	default:
		return apperrors.InternalError("failed to record vote", err)
	}
}

// lookupError maps the not-found sentinels of presenter reads to 404 and
// everything else to a retryable 500.
func lookupError(err error, what string) *apperrors.Error {
	switch {
	case errors.Is(err, domain.ErrQuestionNotFound):
		return apperrors.NotFoundError("question not found").WithReason("QuestionNotFound")
	case errors.Is(err, domain.ErrSessionNotFound):
		return apperrors.NotFoundError("session not found").WithReason("SessionNotFound")
	case errors.Is(err, domain.ErrEmptyQuestionText):
		return apperrors.ValidationError(err.Error()).WithReason("EmptyQuestionText")
	default:
		return apperrors.InternalError("failed to "+what, err).AsRetryable()
	}
}
