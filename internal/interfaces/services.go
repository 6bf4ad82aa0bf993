package interfaces

import (
	"context"

	"github.com/bobmcallan/b3notifier/internal/models"
)

// SessionManager owns the authentication state of the running client.
type SessionManager interface {
	Login(ctx context.Context, creds models.Credentials) error
	Logout(ctx context.Context) error
	FetchProfile(ctx context.Context) (*models.Profile, error)

	// IsAuthenticated reflects Login/Logout synchronously.
	IsAuthenticated() bool
	Snapshot() models.SessionSnapshot

	// Subscribe registers fn for every state transition and returns a function
	// that removes it.
	Subscribe(fn func(models.SessionSnapshot)) (unsubscribe func())

	// AwaitReady blocks until the profile is loaded or the session is anonymous.
	AwaitReady(ctx context.Context) (*models.Profile, error)
}

// WatchlistService manages the monitored assets of the authenticated user.
type WatchlistService interface {
	List(ctx context.Context) ([]models.MonitoredAsset, error)
	Quote(ctx context.Context, name string, periodicity int) (*models.Quote, error)
	Add(ctx context.Context, name string, periodicity int) (*models.MonitoredAsset, error)
	Edit(ctx context.Context, asset models.MonitoredAsset, periodicity int) (*models.AssetUpdateResult, error)
	Remove(ctx context.Context, asset models.MonitoredAsset) error
}

// AlertService reads the alert feed.
type AlertService interface {
	List(ctx context.Context) ([]models.Alert, error)
}

// RegistrationService drives the OTP sign-up flow.
type RegistrationService interface {
	SendOTP(ctx context.Context, email string) (*models.OTPSent, error)
	VerifyOTP(ctx context.Context, email, otp string) error
	Register(ctx context.Context, reg models.Registration) (*models.RegistrationResult, error)
}
