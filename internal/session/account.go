package session

import (
	"strings"
	"time"
)

// Account persists what the marketplace knows about a signed-in user
// beyond the identity provider's claims, most importantly the admin flag.
type Account struct {
	UserID     string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	Email      string    `gorm:"column:email;size:320"`
	IsAdmin    bool      `gorm:"column:is_admin;not null;default:false"`
	LastSeenAt time.Time `gorm:"column:last_seen_at"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing marketplace accounts.
func (Account) TableName() string {
	return "accounts"
}

// Identity projects the account into the transient session identity.
func (a Account) Identity() Identity {
	return Identity{ID: a.UserID, Email: a.Email, IsAdmin: a.IsAdmin}
}

func normalize(value string) string {
	return strings.TrimSpace(value)
}
