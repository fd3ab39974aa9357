package starter

import (
	"net/url"
	"strings"

	"github.com/goliatone/go-router"
)

// SessionLocalsKey is where the route guard stores the decoded session
// for downstream handlers.
const SessionLocalsKey = "auth_session"

// RouteClass is the guard's decision about a request path.
type RouteClass int

const (
	// RoutePublic routes pass through untouched.
	RoutePublic RouteClass = iota
	// RouteProtected routes require a valid session.
	RouteProtected
	// RouteAuthPage routes are the sign-in and sign-up screens, which
	// bounce already signed-in users to the dashboard.
	RouteAuthPage
)

// ClassifyRoute decides how the guard treats a path. It is a pure
// function of the path so the policy is testable without a request.
// API routes and static assets are never guarded here; API handlers do
// their own session checks.
func ClassifyRoute(path string) RouteClass {
	if strings.HasPrefix(path, "/api/") || path == "/api" {
		return RoutePublic
	}

	if strings.Contains(path, ".") {
		return RoutePublic
	}

	if strings.HasPrefix(path, "/dashboard") {
		return RouteProtected
	}

	switch path {
	case "/sign-in", "/sign-up":
		return RouteAuthPage
	}

	return RoutePublic
}

// RouteGuard keeps unauthenticated requests out of the dashboard and
// signed-in users off the auth screens. On GET requests with a valid
// session it re-issues the token so active sessions slide their expiry
// forward instead of dying mid-use.
func RouteGuard(auther *RouteAuthenticator, tokens TokenService, logger Logger) router.MiddlewareFunc {
	if logger == nil {
		logger = defLogger{}
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			class := ClassifyRoute(ctx.Path())

			session, err := auther.CurrentSession(ctx)
			if err != nil && !isNoSession(err) {
				// Present but unusable cookie: drop it so the client
				// stops sending garbage.
				logger.Debug("route guard dropping invalid session cookie", "error", err)
				auther.Logout(ctx)
			}

			hasSession := err == nil && session != nil

			switch class {
			case RouteProtected:
				if !hasSession {
					return ctx.Redirect(signInRedirect(ctx.Path()), router.StatusSeeOther)
				}
			case RouteAuthPage:
				if hasSession {
					return ctx.Redirect("/dashboard", router.StatusSeeOther)
				}
			}

			if hasSession {
				ctx.Locals(SessionLocalsKey, session)

				if ctx.Method() == "GET" {
					refreshSessionCookie(ctx, auther, tokens, session, logger)
				}
			}

			return ctx.Next()
		}
	}
}

// SessionFromLocals returns the session the guard stored on the
// request, if any.
func SessionFromLocals(ctx router.Context) (Session, bool) {
	session, ok := ctx.Locals(SessionLocalsKey).(Session)
	return session, ok
}

func signInRedirect(path string) string {
	return "/sign-in?callbackUrl=" + url.QueryEscape(path)
}

func isNoSession(err error) bool {
	return err == ErrUnableToFindSession
}

// refreshSessionCookie mints a fresh token for the session's subject
// and rewrites the cookie. Failures are logged and ignored; the current
// token is still valid.
func refreshSessionCookie(ctx router.Context, auther *RouteAuthenticator, tokens TokenService, session Session, logger Logger) {
	token, err := tokens.Generate(sessionIdentity{session: session})
	if err != nil {
		logger.Warn("route guard failed to refresh session token", "error", err)
		return
	}
	auther.SetSessionToken(ctx, token)
}

// sessionIdentity carries just enough of a session to re-issue its
// token. Name and email are not part of the claims.
type sessionIdentity struct {
	session Session
}

func (s sessionIdentity) ID() string {
	return s.session.GetUserID()
}

func (s sessionIdentity) Name() string {
	return ""
}

func (s sessionIdentity) Email() string {
	return ""
}

func (s sessionIdentity) Role() string {
	return s.session.GetRole()
}

var _ Identity = sessionIdentity{}
