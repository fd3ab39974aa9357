package billing

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	starter "github.com/goliatone/go-saas-starter"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// TrialPeriodDays is the trial every new checkout subscription starts
// with.
const TrialPeriodDays = 14

// Client is the Stripe-backed billing layer. It satisfies
// starter.BillingClient.
type Client struct {
	api     *client.API
	baseURL string
	logger  starter.Logger
}

var _ starter.BillingClient = (*Client)(nil)

// New creates a billing client. baseURL is the public origin used to
// build the checkout and portal return URLs.
func New(secretKey, baseURL string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)

	return &Client{
		api:     api,
		baseURL: baseURL,
	}
}

// WithLogger sets the logger.
func (c *Client) WithLogger(logger starter.Logger) *Client {
	c.logger = logger
	return c
}

// CancelSubscription cancels the subscription immediately.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	if _, err := c.api.Subscriptions.Cancel(subscriptionID, params); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to cancel subscription").
			WithMetadata(map[string]any{
				"subscription_id": subscriptionID,
			})
	}

	return nil
}

// CreateCheckoutSession opens a subscription checkout for the given
// price and returns the hosted page URL. Known customers resume their
// Stripe identity; new ones are keyed by the user id through
// client_reference_id.
func (c *Client) CreateCheckoutSession(ctx context.Context, user *starter.User, priceID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:          stripe.String(c.baseURL + "/api/stripe/checkout?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:           stripe.String(c.baseURL + "/pricing"),
		ClientReferenceID:   stripe.String(user.ID.String()),
		AllowPromotionCodes: stripe.Bool(true),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(TrialPeriodDays),
		},
	}
	params.Context = ctx

	if user.StripeCustomerID != "" {
		params.Customer = stripe.String(user.StripeCustomerID)
	} else if user.Email != "" {
		params.CustomerEmail = stripe.String(user.Email)
	}

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryExternal, "failed to create checkout session").
			WithMetadata(map[string]any{
				"price_id": priceID,
				"user_id":  user.ID.String(),
			})
	}

	return session.URL, nil
}

// CustomerPortalSession opens the Stripe customer portal for a user
// with a live Stripe identity.
func (c *Client) CustomerPortalSession(ctx context.Context, user *starter.User) (string, error) {
	if user.StripeCustomerID == "" {
		return "", goerrors.New("user has no billing identity", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(user.StripeCustomerID),
		ReturnURL: stripe.String(c.baseURL + "/dashboard"),
	}
	params.Context = ctx

	session, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryExternal, "failed to create portal session").
			WithMetadata(map[string]any{
				"customer_id": user.StripeCustomerID,
			})
	}

	return session.URL, nil
}

// CheckoutOutcome is what a finished checkout session resolved to.
type CheckoutOutcome struct {
	UserID             string
	CustomerID         string
	SubscriptionID     string
	ProductID          string
	PlanName           string
	SubscriptionStatus string
}

// ResolveCheckout loads a finished checkout session and extracts the
// subscription attributes the account stores.
func (c *Client) ResolveCheckout(ctx context.Context, sessionID string) (*CheckoutOutcome, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("subscription")
	params.AddExpand("subscription.items.data.price.product")

	session, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to load checkout session").
			WithMetadata(map[string]any{
				"session_id": sessionID,
			})
	}

	outcome := &CheckoutOutcome{
		UserID: session.ClientReferenceID,
	}

	if session.Customer != nil {
		outcome.CustomerID = session.Customer.ID
	}

	sub := session.Subscription
	if sub == nil {
		return nil, goerrors.New("checkout session has no subscription", goerrors.CategoryExternal)
	}

	outcome.SubscriptionID = sub.ID
	outcome.SubscriptionStatus = string(sub.Status)

	if sub.Items != nil && len(sub.Items.Data) > 0 {
		price := sub.Items.Data[0].Price
		if price != nil && price.Product != nil {
			outcome.ProductID = price.Product.ID
			outcome.PlanName = price.Product.Name
		}
	}

	return outcome, nil
}
