package interfaces

import (
	"context"

	"github.com/bobmcallan/b3notifier/internal/models"
)

// BackendClient is the REST contract of the b3notifier backend.
type BackendClient interface {
	// Public endpoints
	SendOTP(ctx context.Context, email string) (*models.OTPSent, error)
	VerifyOTP(ctx context.Context, email, otp string) error
	Register(ctx context.Context, reg models.Registration) (*models.RegistrationResult, error)
	IssueToken(ctx context.Context, creds models.Credentials) (models.Tokens, error)

	// Authenticated endpoints
	GetProfile(ctx context.Context) (*models.Profile, error)
	ListAssets(ctx context.Context) ([]models.MonitoredAsset, error)
	CreateAsset(ctx context.Context, asset models.NewAsset) (*models.MonitoredAsset, error)
	UpdateAsset(ctx context.Context, id int64, update models.AssetUpdate) (*models.AssetUpdateResult, error)
	DeleteAsset(ctx context.Context, id int64) error
	GetQuote(ctx context.Context, name string, periodicity int) (*models.Quote, error)
	GetUpdatesInfo(ctx context.Context) (*models.UpdateInfo, error)
	ListAlerts(ctx context.Context) ([]models.Alert, error)
	CreateAlert(ctx context.Context, alert models.NewAlert) (*models.Alert, error)

	// ClearAuthorization drops any transport state tied to the previous identity.
	ClearAuthorization()
}
