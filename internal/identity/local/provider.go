package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"identity-service/internal/claims"
	"identity-service/internal/identity"
	"identity-service/internal/model"
	"identity-service/pkg/jwtutil"
	"identity-service/prometheus"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Provider is a database-backed identity provider. Accounts live in the
// identities table, the claims payload is a jsonb column replaced wholesale
// by SetClaims, and session tokens are HS256 JWTs that embed a snapshot of
// the claims taken at mint time.
type Provider struct {
	db          *gorm.DB
	activations *ActivationStore
	linkBase    string
}

func NewProvider(db *gorm.DB, activations *ActivationStore, linkBase string) *Provider {
	return &Provider{db: db, activations: activations, linkBase: linkBase}
}

var _ identity.Provider = (*Provider)(nil)

func (p *Provider) VerifyToken(ctx context.Context, token string) (identity.User, error) {
	sc, err := jwtutil.ValidateToken(token)
	if err != nil {
		// Collapse every verification failure; the parser error text must
		// not reach the caller.
		return identity.User{}, identity.ErrInvalidToken
	}

	row, err := p.getByUID(ctx, sc.UID)
	if err != nil {
		return identity.User{}, identity.ErrInvalidToken
	}
	if row.Disabled {
		return identity.User{}, identity.ErrUserDisabled
	}
	return toUser(row), nil
}

func (p *Provider) GetUserByEmail(ctx context.Context, email string) (identity.User, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var row model.Identity
	result := p.db.WithContext(ctx).First(&row, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return identity.User{}, identity.ErrUserNotFound
		}
		return identity.User{}, result.Error
	}
	return toUser(&row), nil
}

func (p *Provider) CreateUser(ctx context.Context, email string, disabled bool) (identity.User, error) {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	row := model.Identity{
		UID:      uuid.New().String(),
		Email:    email,
		Disabled: disabled,
		Claims:   "{}",
	}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		// The check-then-create in the provisioning flow is not atomic, so
		// a duplicate-email race lands here as a unique-index violation.
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return identity.User{}, identity.ErrEmailTaken
		}
		return identity.User{}, err
	}
	return toUser(&row), nil
}

func (p *Provider) SetDisabled(ctx context.Context, uid string, disabled bool) error {
	defer prometheus.TrackDBOperation("update")(time.Now())

	result := p.db.WithContext(ctx).Model(&model.Identity{}).Where("uid = ?", uid).
		Update("disabled", disabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

func (p *Provider) GetClaims(ctx context.Context, uid string) (claims.Payload, error) {
	row, err := p.getByUID(ctx, uid)
	if err != nil {
		return claims.Payload{}, err
	}

	var payload claims.Payload
	if row.Claims != "" {
		if err := json.Unmarshal([]byte(row.Claims), &payload); err != nil {
			return claims.Payload{}, fmt.Errorf("decode claims for %s: %w", uid, err)
		}
	}
	return payload, nil
}

func (p *Provider) SetClaims(ctx context.Context, uid string, payload claims.Payload) error {
	defer prometheus.TrackDBOperation("update")(time.Now())

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	result := p.db.WithContext(ctx).Model(&model.Identity{}).Where("uid = ?", uid).
		Update("claims", string(raw))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

func (p *Provider) PasswordSetupLink(ctx context.Context, email string) (string, error) {
	user, err := p.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	token, err := p.activations.Create(ctx, user.UID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s?token=%s", p.linkBase, token), nil
}

// Login authenticates with email and password and mints a session token
// embedding the currently stored claims.
func (p *Provider) Login(ctx context.Context, email, password string) (string, error) {
	var row model.Identity
	result := p.db.WithContext(ctx).First(&row, "email = ?", email)
	if result.Error != nil {
		return "", identity.ErrInvalidCredentials
	}
	if row.Disabled {
		return "", identity.ErrUserDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return "", identity.ErrInvalidCredentials
	}
	return p.mintToken(&row)
}

// Activate redeems a one-time activation token, establishes the password and
// enables the account.
func (p *Provider) Activate(ctx context.Context, token, password string) error {
	uid, err := p.activations.Consume(ctx, token)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	result := p.db.WithContext(ctx).Model(&model.Identity{}).Where("uid = ?", uid).
		Updates(map[string]interface{}{"password_hash": string(hash), "disabled": false})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// RefreshToken mints a new session token for the account, re-reading the
// stored claims. Callers that just synced claims use this to drop the stale
// snapshot without waiting for natural expiry.
func (p *Provider) RefreshToken(ctx context.Context, uid string) (string, error) {
	row, err := p.getByUID(ctx, uid)
	if err != nil {
		return "", err
	}
	if row.Disabled {
		return "", identity.ErrUserDisabled
	}
	return p.mintToken(row)
}

func (p *Provider) mintToken(row *model.Identity) (string, error) {
	var payload claims.Payload
	if row.Claims != "" {
		if err := json.Unmarshal([]byte(row.Claims), &payload); err != nil {
			return "", fmt.Errorf("decode claims for %s: %w", row.UID, err)
		}
	}
	return jwtutil.GenerateToken(row.UID, row.Email, payload)
}

func (p *Provider) getByUID(ctx context.Context, uid string) (*model.Identity, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())

	var row model.Identity
	result := p.db.WithContext(ctx).First(&row, "uid = ?", uid)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, identity.ErrUserNotFound
		}
		return nil, result.Error
	}
	return &row, nil
}

func toUser(row *model.Identity) identity.User {
	return identity.User{UID: row.UID, Email: row.Email, Disabled: row.Disabled}
}

func isUniqueViolation(err error) bool {
	// pgx surfaces unique violations as *pgconn.PgError with code 23505;
	// matching on the text avoids importing the driver here.
	return err != nil && (strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "duplicate key"))
}
