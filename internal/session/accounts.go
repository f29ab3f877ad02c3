package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrInvalidSubject indicates the provider claims carried no usable identifier.
	ErrInvalidSubject = errors.New("session: invalid subject")
	// ErrAccountNotFound indicates no account exists for the identifier.
	ErrAccountNotFound = errors.New("session: account not found")
)

// AccountsConfig describes the dependencies required for account resolution.
type AccountsConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Accounts manages the persisted account records behind session identities.
type Accounts struct {
	db     *gorm.DB
	now    func() time.Time
	logger *zap.Logger
}

// NewAccounts constructs the account service.
func NewAccounts(cfg AccountsConfig) (*Accounts, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("session: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accounts{db: cfg.Database, now: clock, logger: logger}, nil
}

// Resolve returns the session identity for a verified sign-in, creating the
// account record on first contact. The admin flag always comes from the
// stored record; the provider has no say in it.
func (a *Accounts) Resolve(ctx context.Context, subject, email string) (Identity, error) {
	subject = normalize(subject)
	if subject == "" {
		return Identity{}, ErrInvalidSubject
	}

	var account Account
	err := a.db.WithContext(ctx).
		Where("user_id = ?", subject).
		First(&account).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account = Account{
			UserID:     subject,
			Email:      normalize(email),
			LastSeenAt: a.now(),
		}
		if err := a.db.WithContext(ctx).Create(&account).Error; err != nil {
			return Identity{}, err
		}
		return account.Identity(), nil
	}
	if err != nil {
		return Identity{}, err
	}

	updates := map[string]interface{}{"last_seen_at": a.now()}
	if fresh := normalize(email); fresh != "" && fresh != account.Email {
		updates["email"] = fresh
		account.Email = fresh
	}
	// Best effort: a failed refresh must not block sign-in.
	if err := a.db.WithContext(ctx).Model(&Account{}).
		Where("user_id = ?", subject).
		Updates(updates).
		Error; err != nil {
		a.logger.Warn("account refresh failed",
			zap.String("user_id", subject),
			zap.Error(err))
	}

	return account.Identity(), nil
}

// Lookup fetches the identity for a known user id.
func (a *Accounts) Lookup(ctx context.Context, userID string) (Identity, error) {
	userID = normalize(userID)
	if userID == "" {
		return Identity{}, ErrInvalidSubject
	}
	var account Account
	err := a.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, ErrAccountNotFound
	}
	if err != nil {
		return Identity{}, err
	}
	return account.Identity(), nil
}

// SetAdmin flips the stored admin flag for an account.
func (a *Accounts) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	userID = normalize(userID)
	if userID == "" {
		return ErrInvalidSubject
	}
	result := a.db.WithContext(ctx).Model(&Account{}).
		Where("user_id = ?", userID).
		Update("is_admin", isAdmin)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}
