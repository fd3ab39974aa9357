package billing

import (
	"context"

	"github.com/goliatone/go-router"
	starter "github.com/goliatone/go-saas-starter"
)

// RouteRegistrar captures the router methods the controller mounts on.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// UserResolver resolves the signed-in user. The root RouteAuthenticator
// satisfies it.
type UserResolver interface {
	CurrentUser(ctx router.Context) (*starter.User, error)
}

// CheckoutClient is the billing surface the HTTP routes need. Client
// satisfies it.
type CheckoutClient interface {
	ResolveCheckout(ctx context.Context, sessionID string) (*CheckoutOutcome, error)
	CustomerPortalSession(ctx context.Context, user *starter.User) (string, error)
}

// HTTPController finalizes checkouts and opens portal sessions.
type HTTPController struct {
	client   CheckoutClient
	users    starter.Users
	resolver UserResolver
	logger   starter.Logger
}

// NewHTTPController creates the billing HTTP controller.
func NewHTTPController(client CheckoutClient, users starter.Users, resolver UserResolver) *HTTPController {
	return &HTTPController{
		client:   client,
		users:    users,
		resolver: resolver,
	}
}

// WithLogger sets the logger.
func (c *HTTPController) WithLogger(logger starter.Logger) *HTTPController {
	c.logger = logger
	return c
}

// RegisterRoutes mounts the Stripe return and portal routes.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get("/api/stripe/checkout", c.CheckoutReturn)
	group.Get("/api/stripe/portal", c.PortalRedirect)
}

// CheckoutReturn is Stripe's success URL: it resolves the finished
// session and stores the subscription attributes on the account.
func (c *HTTPController) CheckoutReturn(ctx router.Context) error {
	sessionID := ctx.Query("session_id", "")
	if sessionID == "" {
		return ctx.Redirect("/pricing", router.StatusSeeOther)
	}

	outcome, err := c.client.ResolveCheckout(ctx.Context(), sessionID)
	if err != nil {
		c.logError("checkout return failed to resolve session", err)
		return ctx.Redirect("/pricing", router.StatusSeeOther)
	}

	user, err := c.users.GetByID(ctx.Context(), outcome.UserID)
	if err != nil || user == nil {
		c.logError("checkout return failed to load user", err)
		return ctx.Redirect("/pricing", router.StatusSeeOther)
	}

	user.StripeCustomerID = outcome.CustomerID
	user.StripeSubscriptionID = outcome.SubscriptionID
	user.StripeProductID = outcome.ProductID
	user.PlanName = outcome.PlanName
	user.SubscriptionStatus = outcome.SubscriptionStatus

	if _, err := c.users.Update(ctx.Context(), user); err != nil {
		c.logError("checkout return failed to store subscription", err)
		return ctx.Redirect("/pricing", router.StatusSeeOther)
	}

	return ctx.Redirect("/dashboard", router.StatusSeeOther)
}

// PortalRedirect sends a subscribed user to the Stripe customer portal.
func (c *HTTPController) PortalRedirect(ctx router.Context) error {
	user, err := c.resolver.CurrentUser(ctx)
	if err != nil || user == nil {
		return ctx.Redirect("/sign-in", router.StatusSeeOther)
	}

	url, err := c.client.CustomerPortalSession(ctx.Context(), user)
	if err != nil {
		c.logError("portal session failed", err)
		return ctx.Redirect("/pricing", router.StatusSeeOther)
	}

	return ctx.Redirect(url, router.StatusSeeOther)
}

func (c *HTTPController) logError(msg string, err error) {
	if c.logger != nil {
		c.logger.Error(msg, "error", err)
	}
}
