package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bobmcallan/b3notifier/internal/models"
)

// SendOTP asks the backend to email a one-time passcode.
func (c *Client) SendOTP(ctx context.Context, email string) (*models.OTPSent, error) {
	const path = "/user/send-otp/"
	resp, err := c.do(ctx, http.MethodPost, path, map[string]string{"email": email})
	if err != nil {
		return nil, err
	}
	out := &models.OTPSent{Message: resp.Message}
	if len(resp.Payload) > 0 {
		if err := resp.decode(path, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// VerifyOTP checks the passcode entered by the user.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) error {
	_, err := c.do(ctx, http.MethodPost, "/user/verify-otp/", map[string]string{"email": email, "otp": otp})
	return err
}

// Register creates the account, or updates the one already bound to the email.
func (c *Client) Register(ctx context.Context, reg models.Registration) (*models.RegistrationResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/user/register/", reg)
	if err != nil {
		return nil, err
	}
	return &models.RegistrationResult{
		Message: resp.Message,
		Created: resp.StatusCode == http.StatusCreated,
	}, nil
}

// IssueToken exchanges credentials for a token pair. The pair is returned as
// received; callers decide whether a partial pair is acceptable.
func (c *Client) IssueToken(ctx context.Context, creds models.Credentials) (models.Tokens, error) {
	const path = "/token/"
	resp, err := c.do(ctx, http.MethodPost, path, creds)
	if err != nil {
		return models.Tokens{}, err
	}
	var tokens models.Tokens
	if err := resp.decode(path, &tokens); err != nil {
		return models.Tokens{}, err
	}
	return tokens, nil
}

// GetProfile fetches the authenticated user's profile.
func (c *Client) GetProfile(ctx context.Context) (*models.Profile, error) {
	const path = "/user/profile/"
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var profile models.Profile
	if err := resp.decode(path, &profile); err != nil {
		return nil, err
	}
	if profile.Username == "" {
		return nil, fmt.Errorf("profile response from %s has no username", path)
	}
	return &profile, nil
}
