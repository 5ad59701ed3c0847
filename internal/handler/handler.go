package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"eato/internal/auth"
	"eato/internal/middleware"
	"eato/internal/model"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// messageResponse is the body of writes that return no resource.
type messageResponse struct {
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Int("status", status).Msg("failed to write response body")
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: middleware.RequestIDFrom(r.Context()),
	}, logger)
}

// respondError maps err to a status. Domain errors carry their code and
// message to the client; anything else is logged and reported generically.
func respondError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		status := statusFor(domainErr.Code)
		event := logger.Warn()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.Str("code", domainErr.Code).Int("status", status).Str("path", r.URL.Path).Msg(domainErr.Message)
		writeError(w, r, status, domainErr.Code, domainErr.Message, logger)
		return
	}

	logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("handler error")
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "An unexpected error occurred", logger)
}

// statusFor returns the HTTP status of a domain error code.
func statusFor(code string) int {
	switch code {
	case model.ErrCodeInvalidJSON,
		model.ErrCodeMissingField,
		model.ErrCodeValidationFailed,
		model.ErrCodeInvalidSize,
		model.ErrCodeInvalidQuantity,
		model.ErrCodeSizeNotFound,
		model.ErrCodeSizeUnavailable,
		model.ErrCodeDuplicateItem,
		model.ErrCodeDuplicateSize,
		model.ErrCodeInvalidStatus,
		model.ErrCodeStatusUnchanged,
		model.ErrCodeWeakPassword,
		model.ErrCodeInvalidCredentials,
		model.ErrCodeInvalidAdminCode,
		model.ErrCodeEmailNotVerified,
		model.ErrCodeOTPNotFound,
		model.ErrCodeOTPExpired,
		model.ErrCodeOTPInvalid,
		model.ErrCodeOTPAttemptsExceeded:
		return http.StatusBadRequest
	case model.ErrCodeProductNotFound,
		model.ErrCodeOrderNotFound,
		model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmailExists,
		model.ErrCodeContactExists:
		return http.StatusConflict
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeStorageDisabled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return model.NewDomainError(model.ErrCodeInvalidJSON, "Invalid JSON in request body")
	}
	return nil
}

// caller returns the authenticated identity or writes a 401.
func caller(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (model.Identity, bool) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, model.ErrUnauthorised.Message, logger)
		return model.Identity{}, false
	}
	return id, true
}
