package model

import "time"

// OTP is a pending one-time email verification code.
type OTP struct {
	Email     string
	Action    string
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
	Verified  bool
	CreatedAt time.Time
}

// Expired reports whether the code is past its expiry at now.
func (o *OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// OTPRequest asks for a code to be emailed.
type OTPRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Action string `json:"action" validate:"omitempty,max=50"`
}

// OTPVerifyRequest submits a code for verification.
type OTPVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}
