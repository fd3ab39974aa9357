package social

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	starter "github.com/goliatone/go-saas-starter"
)

// Authenticator orchestrates the provider sign-in flow: it hands the
// browser to the provider, completes the code exchange, and provisions
// a local user keyed on the provider-reported email.
type Authenticator struct {
	providers map[string]Provider
	state     StateManager
	users     starter.Users
	tokens    starter.TokenService
	sink      starter.ActivitySink
	logger    starter.Logger
	config    Config
}

// Config configures the social authenticator.
type Config struct {
	// DefaultCallbackURL is where successful sign-ins land when the
	// request carries no callbackUrl of its own.
	DefaultCallbackURL string

	// StateSecret seals the OAuth state parameter.
	StateSecret string

	StateTTL time.Duration

	// RequireVerifiedEmail rejects profiles whose email the provider
	// has not verified. Keyed-on-email provisioning is unsafe without
	// it unless the provider always verifies.
	RequireVerifiedEmail bool

	// DefaultRole is assigned to provisioned users.
	DefaultRole starter.UserRole
}

// Option configures the social authenticator.
type Option func(*Authenticator)

// WithProvider registers a social provider.
func WithProvider(provider Provider) Option {
	return func(a *Authenticator) {
		if provider == nil {
			return
		}
		a.providers[provider.Name()] = provider
	}
}

// WithStateManager sets a custom state manager.
func WithStateManager(sm StateManager) Option {
	return func(a *Authenticator) {
		a.state = sm
	}
}

// WithActivitySink sets the sink that records provisioned sign-ups and
// sign-ins.
func WithActivitySink(sink starter.ActivitySink) Option {
	return func(a *Authenticator) {
		a.sink = sink
	}
}

// WithLogger sets the logger.
func WithLogger(logger starter.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// NewAuthenticator creates a social authenticator backed by the given
// user store and token service.
func NewAuthenticator(users starter.Users, tokens starter.TokenService, config Config, opts ...Option) *Authenticator {
	cfg := config
	if cfg.StateTTL == 0 {
		cfg.StateTTL = 10 * time.Minute
	}
	if cfg.DefaultCallbackURL == "" {
		cfg.DefaultCallbackURL = "/dashboard"
	}
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = starter.RoleMember
	}

	a := &Authenticator{
		providers: make(map[string]Provider),
		users:     users,
		tokens:    tokens,
		config:    cfg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	if a.state == nil {
		encKey, macKey := DeriveStateKeys(cfg.StateSecret)
		a.state = NewEncryptedStateManager(encKey, macKey, cfg.StateTTL)
	}

	return a
}

// AuthRedirect is the authorization URL the browser is sent to.
type AuthRedirect struct {
	URL      string
	State    string
	Provider string
}

// AuthResult is a completed provider sign-in.
type AuthResult struct {
	User        *starter.User
	Token       string
	IsNewUser   bool
	Provider    string
	Profile     *Profile
	CallbackURL string
}

// BeginAuth starts the flow for a provider. callbackURL is preserved
// through the state parameter; empty means the configured default.
func (a *Authenticator) BeginAuth(ctx context.Context, providerName, callbackURL string) (*AuthRedirect, error) {
	provider, ok := a.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	if callbackURL == "" {
		callbackURL = a.config.DefaultCallbackURL
	}

	codeVerifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	state := &OAuthState{
		Nonce:        generateNonce(),
		Provider:     providerName,
		CodeVerifier: codeVerifier,
		CallbackURL:  callbackURL,
		IssuedAt:     time.Now().Unix(),
		ExpiresAt:    time.Now().Add(a.config.StateTTL).Unix(),
	}

	stateToken, err := a.state.Encode(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}

	authURL := provider.AuthCodeURL(stateToken, WithPKCE(computeCodeChallenge(codeVerifier), "S256"))

	return &AuthRedirect{
		URL:      authURL,
		State:    stateToken,
		Provider: providerName,
	}, nil
}

// CompleteAuth finishes the flow after the provider callback: verify
// state, exchange the code, fetch the profile, and resolve or provision
// the local user.
func (a *Authenticator) CompleteAuth(ctx context.Context, providerName, code, stateToken string) (*AuthResult, error) {
	state, err := a.state.Decode(stateToken)
	if err != nil {
		if goerrors.Is(err, ErrStateExpired) {
			return nil, ErrStateExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if state.Provider != providerName {
		return nil, fmt.Errorf("%w: provider mismatch", ErrInvalidState)
	}

	provider, ok := a.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	token, err := provider.Exchange(ctx, code, WithCodeVerifier(state.CodeVerifier))
	if err != nil {
		return nil, goerrors.Wrap(err, ErrTokenExchangeFailed.Category, ErrTokenExchangeFailed.Message).
			WithTextCode(ErrTokenExchangeFailed.TextCode)
	}

	profile, err := provider.UserInfo(ctx, token)
	if err != nil {
		return nil, goerrors.Wrap(err, ErrUserInfoFailed.Category, ErrUserInfoFailed.Message).
			WithTextCode(ErrUserInfoFailed.TextCode)
	}

	if profile.Email == "" {
		return nil, ErrMissingEmail
	}

	if a.config.RequireVerifiedEmail && !profile.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	user, isNew, err := a.resolveUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	jwtToken, err := a.tokens.Generate(starter.NewIdentityFromUser(user))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	a.recordActivity(ctx, user, isNew)

	return &AuthResult{
		User:        user,
		Token:       jwtToken,
		IsNewUser:   isNew,
		Provider:    providerName,
		Profile:     profile,
		CallbackURL: state.CallbackURL,
	}, nil
}

// resolveUser finds the user by the provider email or provisions one.
// Provisioned users carry no password hash; the credentials path
// rejects them until they set one.
func (a *Authenticator) resolveUser(ctx context.Context, profile *Profile) (*starter.User, bool, error) {
	user, err := a.users.GetByEmail(ctx, profile.Email)
	if err == nil && user != nil {
		return user, false, nil
	}

	if err != nil && !goerrors.IsNotFound(err) {
		return nil, false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve social user")
	}

	created, err := a.users.Register(ctx, &starter.User{
		Email: profile.Email,
		Name:  profile.Name,
		Image: profile.AvatarURL,
		Role:  a.config.DefaultRole,
	})
	if err != nil {
		return nil, false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to provision social user")
	}

	return created, true, nil
}

func (a *Authenticator) recordActivity(ctx context.Context, user *starter.User, isNew bool) {
	if a.sink == nil {
		return
	}

	action := starter.ActivitySignIn
	if isNew {
		action = starter.ActivitySignUp
	}

	if err := starter.RecordActivity(ctx, a.sink, user.ID, action); err != nil && a.logger != nil {
		a.logger.Error("social auth failed to record activity", "error", err)
	}
}

// Providers returns the names of the registered providers.
func (a *Authenticator) Providers() []string {
	names := make([]string, 0, len(a.providers))
	for name := range a.providers {
		names = append(names, name)
	}
	return names
}
