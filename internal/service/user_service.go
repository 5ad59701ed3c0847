package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"eato/internal/auth"
	"eato/internal/cache"
	"eato/internal/config"
	"eato/internal/model"
	"eato/internal/repository"

	"github.com/rs/zerolog"
)

const (
	maxNameLength    = 50
	maxAddressLength = 255
)

// userService implements UserService.
type userService struct {
	userRepo        repository.UserRepository
	otp             OTPService
	hasher          auth.Hasher
	tokens          TokenIssuer
	notifier        Notifier
	cache           cache.Cache
	ttls            cache.TTLs
	adminSecret     string
	requireVerified bool
	logger          zerolog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	userRepo repository.UserRepository,
	otp OTPService,
	hasher auth.Hasher,
	tokens TokenIssuer,
	notifier Notifier,
	c cache.Cache,
	ttls cache.TTLs,
	cfg config.AuthConfig,
	logger zerolog.Logger,
) UserService {
	return &userService{
		userRepo:        userRepo,
		otp:             otp,
		hasher:          hasher,
		tokens:          tokens,
		notifier:        notifier,
		cache:           c,
		ttls:            ttls,
		adminSecret:     cfg.AdminSecretCode,
		requireVerified: cfg.RequireVerifiedMail,
		logger:          logger.With().Str("service", "user").Logger(),
	}
}

// Register validates the signup, hashes the password and creates the
// account. An admin secret code, when given, must match.
func (s *userService) Register(ctx context.Context, req *model.SignupRequest) (*model.AuthResponse, error) {
	if req == nil {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "email, contactNo and password are required")
	}

	user := &model.User{
		FirstName:  strings.TrimSpace(req.FirstName),
		MiddleName: strings.TrimSpace(req.MiddleName),
		LastName:   strings.TrimSpace(req.LastName),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		ContactNo:  strings.TrimSpace(req.ContactNo),
		Address:    strings.TrimSpace(req.Address),
		Role:       model.RoleUser,
	}

	switch {
	case user.Email == "":
		return nil, model.NewDomainError(model.ErrCodeMissingField, "email is required")
	case user.ContactNo == "":
		return nil, model.NewDomainError(model.ErrCodeMissingField, "contactNo is required")
	case req.Password == "":
		return nil, model.NewDomainError(model.ErrCodeMissingField, "password is required")
	}
	if !validEmail(user.Email) {
		return nil, model.NewDomainError(model.ErrCodeValidationFailed, "Invalid email format")
	}
	if !validContact(user.ContactNo) {
		return nil, model.NewDomainError(model.ErrCodeValidationFailed, "Invalid contact number format")
	}
	if err := checkProfile(user); err != nil {
		return nil, err
	}
	if err := checkPassword(req.Password); err != nil {
		return nil, err
	}

	if code := strings.TrimSpace(req.AdminSecretCode); code != "" {
		if s.adminSecret == "" || subtle.ConstantTimeCompare([]byte(code), []byte(s.adminSecret)) != 1 {
			s.logger.Warn().Str("email", user.Email).Msg("signup with invalid admin code")
			return nil, model.ErrInvalidAdminCode
		}
		user.Role = model.RoleAdmin
	}

	if err := s.ensureUnique(ctx, user.Email, user.ContactNo, 0); err != nil {
		return nil, err
	}

	if s.requireVerified {
		verified, err := s.otp.ConsumeVerified(ctx, user.Email)
		if err != nil {
			return nil, err
		}
		if !verified {
			return nil, model.ErrEmailNotVerified
		}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	cache.Invalidate(ctx, s.cache, s.logger, cache.KeyAllUsers)
	s.notify(user, "welcome", func() error { return s.notifier.SendWelcome(ctx, user) })

	s.logger.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	return &model.AuthResponse{User: user, Token: token}, nil
}

// Login authenticates by email, or by contact number when no email is given.
func (s *userService) Login(ctx context.Context, req *model.SigninRequest) (*model.AuthResponse, error) {
	if req == nil || req.Password == "" {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "password is required")
	}
	if strings.ContainsAny(req.Password, " \t\r\n") {
		return nil, model.NewDomainError(model.ErrCodeValidationFailed, "Password must not contain spaces")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	contact := strings.TrimSpace(req.ContactNo)

	var (
		user *model.User
		err  error
	)
	switch {
	case email != "":
		user, err = s.userRepo.GetByEmail(ctx, email)
	case contact != "":
		user, err = s.userRepo.GetByContactNo(ctx, contact)
	default:
		return nil, model.NewDomainError(model.ErrCodeMissingField, "email or contactNo is required")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	if user == nil {
		s.logger.Warn().Str("email", email).Str("contact_no", contact).Msg("sign-in for unknown account")
		return nil, model.ErrInvalidCredentials
	}

	ok, err := s.hasher.Compare(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	if !ok {
		s.logger.Warn().Int64("user_id", user.ID).Msg("sign-in with wrong password")
		return nil, model.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.notify(user, "login", func() error { return s.notifier.SendLoginAlert(ctx, user) })

	s.logger.Info().Int64("user_id", user.ID).Msg("user signed in")
	return &model.AuthResponse{User: user, Token: token}, nil
}

// Update changes the caller's account under a row lock. A fresh token is
// returned when the email or password changed.
func (s *userService) Update(ctx context.Context, caller model.Identity, req *model.UpdateUserRequest) (*model.AuthResponse, error) {
	if req == nil {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "Nothing to update")
	}

	tx, err := s.userRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	var user *model.User
	if user, err = s.userRepo.GetForUpdate(ctx, tx, caller.UserID); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if user == nil {
		err = model.ErrUserNotFound
		return nil, err
	}

	oldEmail := user.Email
	var passwordChanged bool
	if passwordChanged, err = s.applyUpdate(ctx, user, req); err != nil {
		return nil, err
	}
	emailChanged := user.Email != oldEmail

	if err = s.userRepo.Update(ctx, tx, user); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	cache.Invalidate(ctx, s.cache, s.logger, cache.KeyAllUsers)

	resp := &model.AuthResponse{User: user}
	if emailChanged || passwordChanged {
		token, issueErr := s.tokens.Issue(user)
		if issueErr != nil {
			return nil, fmt.Errorf("failed to issue token: %w", issueErr)
		}
		resp.Token = token
	}

	if passwordChanged {
		s.notify(user, "password", func() error { return s.notifier.SendPasswordChanged(ctx, user) })
	}
	if emailChanged {
		s.notify(user, "email-change", func() error { return s.notifier.SendEmailChanged(ctx, user, oldEmail) })
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Bool("email_changed", emailChanged).
		Bool("password_changed", passwordChanged).
		Msg("user updated")
	return resp, nil
}

// applyUpdate validates req and writes it onto user.
func (s *userService) applyUpdate(ctx context.Context, user *model.User, req *model.UpdateUserRequest) (bool, error) {
	if req.UpdatedEmail != nil {
		email := strings.ToLower(strings.TrimSpace(*req.UpdatedEmail))
		if email != "" && email != user.Email {
			if !validEmail(email) {
				return false, model.NewDomainError(model.ErrCodeValidationFailed, "Invalid email format")
			}
			if err := s.ensureUnique(ctx, email, "", user.ID); err != nil {
				return false, err
			}
			user.Email = email
		}
	}

	if req.ContactNo != nil {
		contact := strings.TrimSpace(*req.ContactNo)
		if contact != "" && contact != user.ContactNo {
			if !validContact(contact) {
				return false, model.NewDomainError(model.ErrCodeValidationFailed, "Invalid contact number format")
			}
			if err := s.ensureUnique(ctx, "", contact, user.ID); err != nil {
				return false, err
			}
			user.ContactNo = contact
		}
	}

	for _, f := range []struct {
		in  *string
		out *string
	}{
		{req.FirstName, &user.FirstName},
		{req.MiddleName, &user.MiddleName},
		{req.LastName, &user.LastName},
		{req.Address, &user.Address},
	} {
		if f.in != nil {
			*f.out = strings.TrimSpace(*f.in)
		}
	}
	if err := checkProfile(user); err != nil {
		return false, err
	}

	if req.NewPassword == "" {
		return false, nil
	}
	if req.CurrentPassword == "" {
		return false, model.NewDomainError(model.ErrCodeMissingField, "currentPassword is required to change the password")
	}
	ok, err := s.hasher.Compare(user.PasswordHash, req.CurrentPassword)
	if err != nil {
		return false, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return false, model.NewDomainError(model.ErrCodeInvalidCredentials, "Current password is incorrect")
	}
	if req.NewPassword == req.CurrentPassword {
		return false, model.NewDomainError(model.ErrCodeValidationFailed, "New password must be different from the current password")
	}
	if err := checkPassword(req.NewPassword); err != nil {
		return false, err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return false, err
	}
	user.PasswordHash = hash
	return true, nil
}

// ensureUnique rejects an email or contact number used by another account.
// Empty values are not checked.
func (s *userService) ensureUnique(ctx context.Context, email, contact string, excludeID int64) error {
	if email != "" {
		taken, err := s.userRepo.ExistsByEmail(ctx, email, excludeID)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return model.ErrEmailExists
		}
	}
	if contact != "" {
		taken, err := s.userRepo.ExistsByContactNo(ctx, contact, excludeID)
		if err != nil {
			return fmt.Errorf("failed to check contact number: %w", err)
		}
		if taken {
			return model.ErrContactExists
		}
	}
	return nil
}

// Delete removes the caller's account after checking the password.
func (s *userService) Delete(ctx context.Context, caller model.Identity, req *model.DeleteUserRequest) error {
	if req == nil || req.Password == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "password is required")
	}

	user, err := s.userRepo.GetByID(ctx, caller.UserID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if user == nil {
		return model.ErrUserNotFound
	}

	ok, err := s.hasher.Compare(user.PasswordHash, req.Password)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return model.NewDomainError(model.ErrCodeInvalidCredentials, "Incorrect password")
	}

	deleted, err := s.userRepo.Delete(ctx, user.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return model.ErrUserNotFound
	}

	cache.Invalidate(ctx, s.cache, s.logger, cache.KeyAllUsers, cache.CartKey(user.Email), cache.OrdersKey(user.Email))
	s.notify(user, "deleted", func() error { return s.notifier.SendAccountDeleted(ctx, user) })

	s.logger.Info().Int64("user_id", user.ID).Msg("user deleted")
	return nil
}

// List returns every account through the cache.
func (s *userService) List(ctx context.Context) ([]model.User, error) {
	return cache.Fetch(ctx, s.cache, s.logger, cache.KeyAllUsers, s.ttls.Users,
		func(ctx context.Context) ([]model.User, error) {
			users, err := s.userRepo.List(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list users: %w", err)
			}
			if users == nil {
				users = []model.User{}
			}
			return users, nil
		})
}

// Get returns one account.
func (s *userService) Get(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, model.Errorf(model.ErrCodeUserNotFound, "User %d not found", id)
	}
	return user, nil
}

// notify sends a best-effort email; failures are only logged.
func (s *userService) notify(user *model.User, kind string, send func() error) {
	if err := send(); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", user.ID).Str("email_kind", kind).Msg("notification email not sent")
	}
}

// checkProfile enforces the optional profile field lengths.
func checkProfile(u *model.User) error {
	for _, f := range []struct {
		name  string
		value string
		max   int
	}{
		{"firstName", u.FirstName, maxNameLength},
		{"middleName", u.MiddleName, maxNameLength},
		{"lastName", u.LastName, maxNameLength},
		{"address", u.Address, maxAddressLength},
	} {
		if len([]rune(f.value)) > f.max {
			return model.Errorf(model.ErrCodeValidationFailed, "%s must be at most %d characters", f.name, f.max)
		}
	}
	return nil
}
