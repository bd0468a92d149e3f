package identity

import (
	"context"
	"errors"

	"identity-service/internal/claims"
)

// User is the identity provider's view of an account: authentication only,
// no authorization fields.
type User struct {
	UID      string
	Email    string
	Disabled bool
}

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserDisabled       = errors.New("user disabled")
	ErrActivationInvalid  = errors.New("activation token invalid or expired")
)

// Provider is the identity provider consumed by the authorization guard, the
// claims synchronizer and the provisioning flow. GetClaims/SetClaims are a
// full replace; merge semantics belong to the synchronizer, not the provider.
type Provider interface {
	// VerifyToken checks a bearer token's signature and expiry and returns
	// the verified account. Verification failures collapse into
	// ErrInvalidToken; callers never see the underlying parser error.
	VerifyToken(ctx context.Context, token string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// CreateUser registers a new account. Disabled accounts cannot
	// authenticate until activated.
	CreateUser(ctx context.Context, email string, disabled bool) (User, error)
	SetDisabled(ctx context.Context, uid string, disabled bool) error
	GetClaims(ctx context.Context, uid string) (claims.Payload, error)
	SetClaims(ctx context.Context, uid string, payload claims.Payload) error
	// PasswordSetupLink returns a one-time activation link for the account.
	// Delivering the link to the user is the mail transport's problem.
	PasswordSetupLink(ctx context.Context, email string) (string, error)
}
