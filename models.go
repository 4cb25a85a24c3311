package contacts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Subscription is the user's plan
type Subscription = string

const (
	// SubscriptionStarter is the default plan assigned at registration
	SubscriptionStarter Subscription = "starter"
	// SubscriptionPro is the paid plan
	SubscriptionPro Subscription = "pro"
	// SubscriptionBusiness is the team plan
	SubscriptionBusiness Subscription = "business"
)

// User is the credential store record. PasswordHash, Token, and
// VerificationToken never serialize to JSON.
type User struct {
	bun.BaseModel     `bun:"table:users,alias:usr"`
	ID                uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email             string       `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash      string       `bun:"password_hash,notnull" json:"-"`
	Subscription      Subscription `bun:"subscription,notnull" json:"subscription,omitempty"`
	AvatarURL         string       `bun:"avatar_url" json:"avatar_url,omitempty"`
	Verified          bool         `bun:"is_verified" json:"is_verified"`
	VerificationToken string       `bun:"verification_token,nullzero" json:"-"`
	Token             string       `bun:"token,nullzero" json:"-"`
	CreatedAt         *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// UserProfile is the public projection returned by registration and
// profile endpoints.
type UserProfile struct {
	ID           uuid.UUID    `json:"id"`
	Email        string       `json:"email"`
	Subscription Subscription `json:"subscription"`
	AvatarURL    string       `json:"avatar_url,omitempty"`
}

// Profile returns the user's public projection
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:           u.ID,
		Email:        u.Email,
		Subscription: u.Subscription,
		AvatarURL:    u.AvatarURL,
	}
}

// Contact is a user owned address book entry. OwnerID is set from the
// authenticated identity at creation and is immutable after that.
type Contact struct {
	bun.BaseModel `bun:"table:contacts,alias:cnt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	OwnerID       uuid.UUID  `bun:"owner_id,notnull,type:uuid" json:"owner_id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	Phone         string     `bun:"phone,notnull" json:"phone,omitempty"`
	Favorite      bool       `bun:"favorite" json:"favorite"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"-"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"-"`
}
