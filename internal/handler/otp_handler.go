package handler

import (
	"net/http"

	"eato/internal/model"
	"eato/internal/service"

	"github.com/rs/zerolog"
)

// OTPHandler handles email verification codes.
type OTPHandler struct {
	service service.OTPService
	logger  zerolog.Logger
}

// NewOTPHandler creates a new OTP handler.
func NewOTPHandler(service service.OTPService, logger zerolog.Logger) *OTPHandler {
	return &OTPHandler{
		service: service,
		logger:  logger.With().Str("handler", "otp").Logger(),
	}
}

// Generate handles POST /api/otp/generate requests.
func (h *OTPHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req model.OTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	if err := h.service.Generate(r.Context(), &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "OTP sent to " + req.Email}, h.logger)
}

// Verify handles POST /api/otp/verify requests.
func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req model.OTPVerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	if err := h.service.Verify(r.Context(), &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "OTP verified successfully"}, h.logger)
}
