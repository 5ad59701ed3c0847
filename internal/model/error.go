package model

import (
	"errors"
	"fmt"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeMissingField        = "MISSING_FIELD"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeProductNotFound     = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeInvalidQuantity     = "INVALID_QUANTITY"
	ErrCodeInvalidSize         = "INVALID_SIZE"
	ErrCodeSizeNotFound        = "SIZE_NOT_FOUND"
	ErrCodeSizeUnavailable     = "SIZE_UNAVAILABLE"
	ErrCodeDuplicateItem       = "DUPLICATE_ITEM"
	ErrCodeDuplicateSize       = "DUPLICATE_SIZE"
	ErrCodeInvalidStatus       = "INVALID_STATUS"
	ErrCodeStatusUnchanged     = "STATUS_UNCHANGED"
	ErrCodeEmailExists         = "EMAIL_EXISTS"
	ErrCodeContactExists       = "CONTACT_EXISTS"
	ErrCodeWeakPassword        = "WEAK_PASSWORD"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeInvalidAdminCode    = "INVALID_ADMIN_CODE"
	ErrCodeEmailNotVerified    = "EMAIL_NOT_VERIFIED"
	ErrCodeOTPNotFound         = "OTP_NOT_FOUND"
	ErrCodeOTPExpired          = "OTP_EXPIRED"
	ErrCodeOTPInvalid          = "OTP_INVALID"
	ErrCodeOTPAttemptsExceeded = "OTP_ATTEMPTS_EXCEEDED"
	ErrCodeOTPDelivery         = "OTP_DELIVERY_FAILED"
	ErrCodeOrderIDExhausted    = "ORDER_ID_EXHAUSTED"
	ErrCodeProductIDExhausted  = "PRODUCT_ID_EXHAUSTED"
	ErrCodeStorageDisabled     = "STORAGE_DISABLED"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so that messages carrying ids still
// compare equal to their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a domain error with a formatted message.
func Errorf(code, format string, args ...any) *DomainError {
	return NewDomainError(code, fmt.Sprintf(format, args...))
}

// Common domain errors
var (
	ErrProductNotFound     = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrOrderNotFound       = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrUserNotFound        = NewDomainError(ErrCodeUserNotFound, "User not found")
	ErrInvalidQuantity     = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidSize         = NewDomainError(ErrCodeInvalidSize, "Size must be one of small, medium or large")
	ErrSizeNotFound        = NewDomainError(ErrCodeSizeNotFound, "Size not found for product")
	ErrSizeUnavailable     = NewDomainError(ErrCodeSizeUnavailable, "Size is not available")
	ErrInvalidStatus       = NewDomainError(ErrCodeInvalidStatus, "Invalid order status")
	ErrStatusUnchanged     = NewDomainError(ErrCodeStatusUnchanged, "Order is already in the requested status")
	ErrEmailExists         = NewDomainError(ErrCodeEmailExists, "Email already exists")
	ErrContactExists       = NewDomainError(ErrCodeContactExists, "Contact number already exists")
	ErrInvalidCredentials  = NewDomainError(ErrCodeInvalidCredentials, "Invalid credentials")
	ErrInvalidAdminCode    = NewDomainError(ErrCodeInvalidAdminCode, "Invalid admin secret code")
	ErrEmailNotVerified    = NewDomainError(ErrCodeEmailNotVerified, "Email address has not been verified")
	ErrOTPNotFound         = NewDomainError(ErrCodeOTPNotFound, "OTP not found or expired. Please request a new OTP.")
	ErrOTPExpired          = NewDomainError(ErrCodeOTPExpired, "OTP has expired. Please request a new OTP.")
	ErrOTPInvalid          = NewDomainError(ErrCodeOTPInvalid, "Invalid OTP")
	ErrOTPAttemptsExceeded = NewDomainError(ErrCodeOTPAttemptsExceeded, "Maximum OTP verification attempts exceeded. Please request a new OTP.")
	ErrOTPDelivery         = NewDomainError(ErrCodeOTPDelivery, "failed to send OTP")
	ErrOrderIDExhausted    = NewDomainError(ErrCodeOrderIDExhausted, "could not place order")
	ErrProductIDExhausted  = NewDomainError(ErrCodeProductIDExhausted, "could not create product")
	ErrStorageDisabled     = NewDomainError(ErrCodeStorageDisabled, "Image storage is not configured")
	ErrUnauthorised        = NewDomainError(ErrCodeUnauthorised, "Authentication required")
	ErrForbidden           = NewDomainError(ErrCodeForbidden, "Access denied")
)

// ErrIDConflict is returned by repositories when a generated identifier is
// already taken. Callers regenerate and retry.
var ErrIDConflict = errors.New("identifier already in use")
