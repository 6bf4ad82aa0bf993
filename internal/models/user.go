package models

// Profile is a read-only snapshot of the authenticated identity.
// It is replaced wholesale on each fetch.
type Profile struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// Credentials are exchanged for a token pair at /token/.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration creates an account, or updates the one already bound to Email.
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// OTPSent is the backend acknowledgement of /user/send-otp/.
// UserExists means the registration that follows updates an existing account.
type OTPSent struct {
	Message    string `json:"message"`
	UserExists bool   `json:"user_exists"`
}

// RegistrationResult reports whether /user/register/ created or updated the account.
type RegistrationResult struct {
	Message string `json:"message"`
	Created bool   `json:"-"`
}
