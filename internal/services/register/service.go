// Package register drives the OTP sign-up flow: send a code, verify it, then
// create or update the account bound to the email.
package register

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/bobmcallan/b3notifier/internal/common"
	"github.com/bobmcallan/b3notifier/internal/interfaces"
	"github.com/bobmcallan/b3notifier/internal/models"
)

// Password length bounds and OTP length.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 20
	OTPLength         = 6
)

// Compile-time interface check
var _ interfaces.RegistrationService = (*Service)(nil)

// Service implements RegistrationService
type Service struct {
	client interfaces.BackendClient
	logger *common.Logger
}

// NewService creates a new registration service
func NewService(client interfaces.BackendClient, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{client: client, logger: logger}
}

// SendOTP emails a one-time code. UserExists in the result means the
// registration that follows updates an existing account.
func (s *Service) SendOTP(ctx context.Context, email string) (*models.OTPSent, error) {
	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	sent, err := s.client.SendOTP(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to send code: %w", err)
	}
	s.logger.Info().Str("email", email).Bool("user_exists", sent.UserExists).Msg("OTP sent")
	return sent, nil
}

// VerifyOTP checks the code the user received.
func (s *Service) VerifyOTP(ctx context.Context, email, otp string) error {
	email = strings.TrimSpace(email)
	otp = strings.TrimSpace(otp)
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if err := ValidateOTP(otp); err != nil {
		return err
	}
	if err := s.client.VerifyOTP(ctx, email, otp); err != nil {
		return fmt.Errorf("failed to verify code: %w", err)
	}
	return nil
}

// Register creates the account, or updates the one bound to reg.Email.
func (s *Service) Register(ctx context.Context, reg models.Registration) (*models.RegistrationResult, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	if err := ValidateRegistration(reg); err != nil {
		return nil, err
	}
	res, err := s.client.Register(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}
	s.logger.Info().Str("username", reg.Username).Bool("created", res.Created).Msg("Registration complete")
	return res, nil
}

// ValidateEmail rejects addresses that are not a bare user@host.
func ValidateEmail(email string) error {
	if email == "" {
		return &models.ValidationError{Field: "email", Message: "email is required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return &models.ValidationError{Field: "email", Message: "enter a valid email address"}
	}
	return nil
}

// ValidateOTP requires exactly OTPLength digits.
func ValidateOTP(otp string) error {
	if utf8.RuneCountInString(otp) != OTPLength {
		return &models.ValidationError{Field: "otp", Message: fmt.Sprintf("code must have %d digits", OTPLength)}
	}
	for _, r := range otp {
		if r < '0' || r > '9' {
			return &models.ValidationError{Field: "otp", Message: "code must contain only digits"}
		}
	}
	return nil
}

// ValidateRegistration checks the sign-up form before it is sent.
func ValidateRegistration(reg models.Registration) error {
	if reg.Username == "" {
		return &models.ValidationError{Field: "username", Message: "username is required"}
	}
	if err := ValidateEmail(reg.Email); err != nil {
		return err
	}
	n := utf8.RuneCountInString(reg.Password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return &models.ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("password must be between %d and %d characters", MinPasswordLength, MaxPasswordLength),
		}
	}
	if reg.Password != reg.ConfirmPassword {
		return &models.ValidationError{Field: "confirm_password", Message: "passwords do not match"}
	}
	return nil
}
