package starter

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleMember is the default role assigned on sign-up
	RoleMember UserRole = "member"
	// RoleOwner is the elevated role for account owners
	RoleOwner UserRole = "owner"
)

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleMember, RoleOwner:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}

// User is the user model. Email is unique among non-deleted rows; rows
// are never hard-deleted, SoftDelete rewrites the email to a tombstone
// so the address can be reused.
type User struct {
	bun.BaseModel        `bun:"table:users,alias:usr"`
	ID                   uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role                 UserRole   `bun:"user_role,notnull" json:"role,omitempty"`
	Name                 string     `bun:"name" json:"name,omitempty"`
	Email                string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash         string     `bun:"password_hash" json:"-"`
	Image                string     `bun:"image" json:"image,omitempty"`
	StripeCustomerID     string     `bun:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string     `bun:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	StripeProductID      string     `bun:"stripe_product_id" json:"stripe_product_id,omitempty"`
	PlanName             string     `bun:"plan_name" json:"plan_name,omitempty"`
	SubscriptionStatus   string     `bun:"subscription_status" json:"subscription_status,omitempty"`
	CreatedAt            *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt            *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt            *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// HasPassword reports whether the account can use the credentials path.
// OAuth-only accounts have no password hash.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}

// HasActiveSubscription reports whether a billing subscription is tied
// to the account.
func (u *User) HasActiveSubscription() bool {
	return u != nil && u.StripeSubscriptionID != ""
}

// TombstoneEmail returns the rewritten email used on soft delete. The
// id suffix frees the original address for reuse while keeping the
// unique constraint satisfied.
func (u *User) TombstoneEmail() string {
	return fmt.Sprintf("%s-%s-deleted", u.Email, u.ID.String())
}

// ActivityType enumerates the account actions we audit.
type ActivityType = string

const (
	ActivitySignUp           ActivityType = "SIGN_UP"
	ActivitySignIn           ActivityType = "SIGN_IN"
	ActivitySignOut          ActivityType = "SIGN_OUT"
	ActivityUpdatePassword   ActivityType = "UPDATE_PASSWORD"
	ActivityUpdateAccount    ActivityType = "UPDATE_ACCOUNT"
	ActivityDeleteAccount    ActivityType = "DELETE_ACCOUNT"
	ActivityCreateTeam       ActivityType = "CREATE_TEAM"
	ActivityAcceptInvitation ActivityType = "ACCEPT_INVITATION"
)

// ActivityLog is an append-only audit record. Rows are never updated
// or deleted.
type ActivityLog struct {
	bun.BaseModel `bun:"table:activity_logs,alias:act"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Action        string     `bun:"action,notnull" json:"action,omitempty"`
	IPAddress     string     `bun:"ip_address" json:"ip_address,omitempty"`
	Timestamp     *time.Time `bun:"timestamp,nullzero,default:current_timestamp" json:"timestamp,omitempty"`
}
