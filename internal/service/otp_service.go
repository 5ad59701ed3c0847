package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eato/internal/auth"
	"eato/internal/config"
	"eato/internal/model"
	"eato/internal/repository"

	"github.com/rs/zerolog"
)

const otpLength = 6

// otpService implements OTPService.
type otpService struct {
	otpRepo     repository.OTPRepository
	hasher      auth.Hasher
	notifier    Notifier
	ttl         time.Duration
	maxAttempts int
	newCode     func() (string, error)
	now         func() time.Time
	logger      zerolog.Logger
}

// NewOTPService creates a new OTP service.
func NewOTPService(
	otpRepo repository.OTPRepository,
	hasher auth.Hasher,
	notifier Notifier,
	cfg config.OTPConfig,
	logger zerolog.Logger,
) OTPService {
	return &otpService{
		otpRepo:     otpRepo,
		hasher:      hasher,
		notifier:    notifier,
		ttl:         cfg.TTL,
		maxAttempts: cfg.MaxAttempts,
		newCode:     func() (string, error) { return randomString(otpLength, "0123456789") },
		now:         time.Now,
		logger:      logger.With().Str("service", "otp").Logger(),
	}
}

// Generate stores a hashed code for the email, replacing any earlier one,
// and emails the plain code.
func (s *otpService) Generate(ctx context.Context, req *model.OTPRequest) error {
	if req == nil {
		return model.NewDomainError(model.ErrCodeMissingField, "email is required")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Action = strings.TrimSpace(req.Action)
	if err := validateStruct(req); err != nil {
		return err
	}

	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return fmt.Errorf("failed to hash OTP: %w", err)
	}

	now := s.now().UTC()
	otp := &model.OTP{
		Email:     req.Email,
		Action:    req.Action,
		CodeHash:  hash,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.otpRepo.Upsert(ctx, otp); err != nil {
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	if err := s.notifier.SendOTP(ctx, req.Email, code, s.ttl); err != nil {
		s.logger.Error().Err(err).Str("email", req.Email).Msg("failed to send OTP")
		return model.ErrOTPDelivery
	}

	s.logger.Info().Str("email", req.Email).Str("action", req.Action).Msg("OTP generated")
	return nil
}

// Verify checks code against the stored hash. Each call spends one attempt
// before comparing. Expired and exhausted codes are deleted.
func (s *otpService) Verify(ctx context.Context, req *model.OTPVerifyRequest) error {
	if req == nil {
		return model.NewDomainError(model.ErrCodeMissingField, "email and otp are required")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.OTP = strings.TrimSpace(req.OTP)
	if err := validateStruct(req); err != nil {
		return err
	}

	otp, err := s.otpRepo.ClaimAttempt(ctx, req.Email, s.maxAttempts, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to claim OTP attempt: %w", err)
	}
	if otp == nil {
		return s.rejectUnclaimed(ctx, req.Email)
	}

	ok, err := s.hasher.Compare(otp.CodeHash, req.OTP)
	if err != nil {
		return fmt.Errorf("failed to compare OTP: %w", err)
	}
	if !ok {
		remaining := max(0, s.maxAttempts-otp.Attempts)
		s.logger.Warn().Str("email", req.Email).Int("remaining", remaining).Msg("invalid OTP submitted")
		return model.Errorf(model.ErrCodeOTPInvalid, "Invalid OTP. %d attempts remaining.", remaining)
	}

	if err := s.otpRepo.MarkVerified(ctx, req.Email); err != nil {
		return fmt.Errorf("failed to mark OTP verified: %w", err)
	}

	s.logger.Info().Str("email", req.Email).Msg("OTP verified")
	return nil
}

// rejectUnclaimed explains why no attempt could be spent on email's code.
func (s *otpService) rejectUnclaimed(ctx context.Context, email string) error {
	otp, err := s.otpRepo.Get(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to get OTP: %w", err)
	}
	if otp == nil {
		return model.ErrOTPNotFound
	}

	s.discard(ctx, email)
	if otp.Expired(s.now()) {
		return model.ErrOTPExpired
	}
	return model.ErrOTPAttemptsExceeded
}

func (s *otpService) discard(ctx context.Context, email string) {
	if err := s.otpRepo.Delete(ctx, email); err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("failed to delete OTP")
	}
}

// ConsumeVerified removes a verified, unexpired code for email and reports
// whether one existed.
func (s *otpService) ConsumeVerified(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	otp, err := s.otpRepo.Get(ctx, email)
	if err != nil {
		return false, fmt.Errorf("failed to get OTP: %w", err)
	}
	if otp == nil || !otp.Verified || otp.Expired(s.now()) {
		return false, nil
	}

	if err := s.otpRepo.Delete(ctx, email); err != nil {
		return false, fmt.Errorf("failed to consume OTP: %w", err)
	}
	return true, nil
}

// SweepExpired deletes every expired code.
func (s *otpService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.otpRepo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep OTPs: %w", err)
	}
	if n > 0 {
		s.logger.Info().Int64("deleted", n).Msg("expired OTPs swept")
	}
	return n, nil
}

// RunOTPSweeper calls SweepExpired every interval until ctx is cancelled.
func RunOTPSweeper(ctx context.Context, svc OTPService, interval time.Duration, logger zerolog.Logger) {
	logger = logger.With().Str("component", "otp-sweeper").Logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", interval).Msg("OTP sweeper started")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("OTP sweeper stopped")
			return
		case <-ticker.C:
			if _, err := svc.SweepExpired(ctx); err != nil {
				logger.Error().Err(err).Msg("OTP sweep failed")
			}
		}
	}
}
