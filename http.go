package starter

import (
	"time"

	"github.com/goliatone/go-router"
)

// RouteAuthenticator binds the Authenticator to the HTTP layer: it
// moves session tokens in and out of the cookie jar and resolves the
// current user for handlers.
type RouteAuthenticator struct {
	auth           Authenticator
	users          Users
	cfg            Config
	cookieDuration time.Duration
	Logger         Logger
}

func NewHTTPAuthenticator(auther Authenticator, users Users, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		users:          users,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	return a, nil
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	a.Logger = logger
	return a
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// Login runs the credentials path and, on success, stores the session
// token in the cookie jar.
func (a *RouteAuthenticator) Login(ctx router.Context, email, password string) error {
	token, err := a.auth.Login(WithClientIP(ctx.Context(), ctx.Header("X-Forwarded-For")), email, password)
	if err != nil {
		a.Logger.Info("login error: %s", err)
		return err
	}

	a.SetSessionToken(ctx, token)
	return nil
}

// Logout invalidates the session cookie.
func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetContextKey())
}

// CurrentSession reads and validates the session cookie. Requests
// without a cookie fail with ErrUnableToFindSession.
func (a *RouteAuthenticator) CurrentSession(ctx router.Context) (Session, error) {
	raw := ctx.Cookies(a.cfg.GetContextKey())
	if raw == "" {
		return nil, ErrUnableToFindSession
	}

	return a.auth.SessionFromToken(raw)
}

// CurrentUser resolves the session to the stored user. Soft-deleted
// users resolve to nothing even when their token is still valid.
func (a *RouteAuthenticator) CurrentUser(ctx router.Context) (*User, error) {
	session, err := a.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}

	user, err := a.users.GetByID(ctx.Context(), session.GetUserID())
	if err != nil {
		return nil, err
	}

	if user == nil || user.DeletedAt != nil {
		return nil, ErrIdentityNotFound
	}

	return user, nil
}

// SetSessionToken writes the session cookie. Used by the credentials
// and the OAuth callback paths alike.
func (a *RouteAuthenticator) SetSessionToken(c router.Context, val string) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(a.cookieDuration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
