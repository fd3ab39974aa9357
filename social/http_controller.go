package social

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-router"
	starter "github.com/goliatone/go-saas-starter"
)

// RouteRegistrar captures the router methods the controller mounts on.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// SessionWriter stores a session token on the response. The root
// RouteAuthenticator satisfies it.
type SessionWriter interface {
	SetSessionToken(ctx router.Context, token string)
}

// HTTPController handles the provider sign-in routes.
type HTTPController struct {
	authenticator *Authenticator
	sessions      SessionWriter
	config        HTTPConfig
	logger        starter.Logger
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// ErrorRedirect receives the browser on any provider failure.
	ErrorRedirect string
}

// NewHTTPController creates a social auth HTTP controller.
func NewHTTPController(authenticator *Authenticator, sessions SessionWriter, cfg HTTPConfig) *HTTPController {
	if cfg.ErrorRedirect == "" {
		cfg.ErrorRedirect = "/sign-in?error=auth_failed"
	}

	return &HTTPController{
		authenticator: authenticator,
		sessions:      sessions,
		config:        cfg,
		logger:        nil,
	}
}

// WithLogger sets the logger.
func (c *HTTPController) WithLogger(logger starter.Logger) *HTTPController {
	c.logger = logger
	return c
}

// RegisterRoutes mounts the sign-in flow under /auth.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get("/auth/:provider/callback", c.Callback)
	group.Get("/auth/:provider", c.BeginAuth)
}

// BeginAuth redirects the browser to the provider. A callbackUrl query
// parameter survives the round trip through the state parameter.
func (c *HTTPController) BeginAuth(ctx router.Context) error {
	providerName := ctx.Param("provider")
	callbackURL := sanitizeCallback(ctx.Query("callbackUrl", ""))

	redirect, err := c.authenticator.BeginAuth(ctx.Context(), providerName, callbackURL)
	if err != nil {
		return c.fail(ctx, err)
	}

	return ctx.Redirect(redirect.URL, http.StatusTemporaryRedirect)
}

// Callback completes the flow and drops the session cookie.
func (c *HTTPController) Callback(ctx router.Context) error {
	providerName := ctx.Param("provider")
	code := ctx.Query("code", "")
	state := ctx.Query("state", "")

	if errCode := ctx.Query("error", ""); errCode != "" {
		return ctx.Redirect(appendQueryParam(c.config.ErrorRedirect, "oauth_error", errCode), http.StatusTemporaryRedirect)
	}

	if code == "" || state == "" {
		return ctx.Redirect(appendQueryParam(c.config.ErrorRedirect, "error", "missing_params"), http.StatusTemporaryRedirect)
	}

	result, err := c.authenticator.CompleteAuth(
		clientIPContext(ctx),
		providerName, code, state,
	)
	if err != nil {
		return c.fail(ctx, err)
	}

	c.sessions.SetSessionToken(ctx, result.Token)

	callbackURL := sanitizeCallback(result.CallbackURL)
	if callbackURL == "" {
		callbackURL = "/dashboard"
	}

	return ctx.Redirect(callbackURL, http.StatusTemporaryRedirect)
}

func (c *HTTPController) fail(ctx router.Context, err error) error {
	if c.logger != nil {
		c.logger.Error("social auth failed", "error", err)
	}
	return ctx.Redirect(appendQueryParam(c.config.ErrorRedirect, "error", "auth_failed"), http.StatusTemporaryRedirect)
}

// sanitizeCallback keeps redirects on-site. Anything that is not a
// local absolute path is dropped.
func sanitizeCallback(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return ""
	}
	return raw
}

// clientIPContext tags the request context with the caller address so
// provisioning activity entries can store it.
func clientIPContext(ctx router.Context) context.Context {
	return starter.WithClientIP(ctx.Context(), ctx.Header("X-Forwarded-For"))
}

func appendQueryParam(rawURL, key, value string) string {
	parsed, err := url.Parse(rawURL)
	if err == nil {
		query := parsed.Query()
		query.Set(key, value)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
