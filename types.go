package starter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds the attributes carried by an auth session token.
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetRole() string
	GetIssuer() string
	GetIssuedAt() *time.Time
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	SessionFromToken(token string) (Session, error)
	IdentityFromSession(ctx context.Context, session Session) (Identity, error)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Name() string
	Email() string
	Role() string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetContextKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
}

// IdentityProvider is the credentials hook the session layer calls to
// resolve an identity. VerifyIdentity must fail with the same error for
// an unknown email, a missing password hash, and a wrong password.
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
	FindIdentityByID(ctx context.Context, id string) (Identity, error)
}

// TokenService handles JWT generation and validation
type TokenService interface {
	Generate(identity Identity) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// BillingClient is the surface the account actions need from the
// payment provider. Checkout and portal sessions return the URL the
// caller should redirect the browser to.
type BillingClient interface {
	CancelSubscription(ctx context.Context, subscriptionID string) error
	CreateCheckoutSession(ctx context.Context, user *User, priceID string) (string, error)
	CustomerPortalSession(ctx context.Context, user *User) (string, error)
}

// NewLogger returns the default stdout logger scoped to a component
// name.
func NewLogger(name string) Logger {
	return namedLogger{name: name}
}

type namedLogger struct {
	name string
}

func (l namedLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] "+l.name+" "+newline(format), args...)
}

func (l namedLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] "+l.name+" "+newline(format), args...)
}

func (l namedLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] "+l.name+" "+newline(format), args...)
}

func (l namedLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] "+l.name+" "+newline(format), args...)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] STARTER "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] STARTER "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] STARTER "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] STARTER "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
