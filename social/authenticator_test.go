package social

import (
	"context"
	"errors"
	"testing"

	repository "github.com/goliatone/go-repository-bun"
	starter "github.com/goliatone/go-saas-starter"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name        string
	authURL     string
	token       *Token
	exchangeErr error
	profile     *Profile
	userInfoErr error

	gotAuthOpts AuthCodeConfig
	gotVerifier string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthCodeURL(state string, opts ...AuthCodeOption) string {
	p.gotAuthOpts = ApplyAuthCodeOptions(nil, opts...)
	return p.authURL + "?state=" + state
}

func (p *fakeProvider) Exchange(_ context.Context, code string, opts ...ExchangeOption) (*Token, error) {
	p.gotVerifier = ApplyExchangeOptions(opts...).CodeVerifier
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return p.token, nil
}

func (p *fakeProvider) UserInfo(context.Context, *Token) (*Profile, error) {
	if p.userInfoErr != nil {
		return nil, p.userInfoErr
	}
	return p.profile, nil
}

// fakeUsers overrides the lookup and provisioning methods the social
// flow touches.
type fakeUsers struct {
	starter.Users

	byEmail     map[string]*starter.User
	registered  []*starter.User
	registerErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]*starter.User{}}
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*starter.User, error) {
	if user, ok := f.byEmail[email]; ok {
		return user, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakeUsers) Register(_ context.Context, user *starter.User) (*starter.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.registered = append(f.registered, user)
	f.byEmail[user.Email] = user
	return user, nil
}

type stubTokens struct {
	token string
	err   error
}

func (s stubTokens) Generate(starter.Identity) (string, error) {
	return s.token, s.err
}

func (s stubTokens) Validate(string) (starter.AuthClaims, error) {
	return nil, errors.New("not implemented")
}

type memorySink struct {
	events []starter.ActivityEvent
}

func (s *memorySink) Record(_ context.Context, event starter.ActivityEvent) error {
	s.events = append(s.events, event)
	return nil
}

func googleProfile() *Profile {
	return &Profile{
		ProviderUserID: "104891234567890",
		Provider:       "google",
		Email:          "test@example.com",
		EmailVerified:  true,
		Name:           "Test User",
		AvatarURL:      "https://lh3.googleusercontent.com/photo.jpg",
	}
}

func newTestAuthenticator(provider Provider, users starter.Users, sink starter.ActivitySink) *Authenticator {
	return NewAuthenticator(users, stubTokens{token: "session-token"}, Config{
		StateSecret:          "test-state-secret",
		RequireVerifiedEmail: true,
	},
		WithProvider(provider),
		WithActivitySink(sink),
	)
}

func TestBeginAuth(t *testing.T) {
	t.Run("builds a PKCE authorization redirect", func(t *testing.T) {
		provider := &fakeProvider{name: "google", authURL: "https://accounts.google.test/auth"}
		auth := newTestAuthenticator(provider, newFakeUsers(), nil)

		redirect, err := auth.BeginAuth(context.Background(), "google", "/dashboard/settings")
		require.NoError(t, err)

		assert.Equal(t, "google", redirect.Provider)
		assert.Contains(t, redirect.URL, "https://accounts.google.test/auth")
		assert.NotEmpty(t, redirect.State)

		assert.NotEmpty(t, provider.gotAuthOpts.CodeChallenge)
		assert.Equal(t, "S256", provider.gotAuthOpts.CodeChallengeMethod)

		// The state round-trips with the callback and code verifier.
		state, err := auth.state.Decode(redirect.State)
		require.NoError(t, err)
		assert.Equal(t, "/dashboard/settings", state.CallbackURL)
		assert.Equal(t, "google", state.Provider)
		assert.NotEmpty(t, state.CodeVerifier)
		assert.Equal(t, computeCodeChallenge(state.CodeVerifier), provider.gotAuthOpts.CodeChallenge)
	})

	t.Run("falls back to the default callback", func(t *testing.T) {
		provider := &fakeProvider{name: "google", authURL: "https://accounts.google.test/auth"}
		auth := newTestAuthenticator(provider, newFakeUsers(), nil)

		redirect, err := auth.BeginAuth(context.Background(), "google", "")
		require.NoError(t, err)

		state, err := auth.state.Decode(redirect.State)
		require.NoError(t, err)
		assert.Equal(t, "/dashboard", state.CallbackURL)
	})

	t.Run("unknown provider", func(t *testing.T) {
		auth := newTestAuthenticator(&fakeProvider{name: "google"}, newFakeUsers(), nil)

		_, err := auth.BeginAuth(context.Background(), "github", "")
		assert.ErrorIs(t, err, ErrProviderNotFound)
	})
}

func beginFlow(t *testing.T, auth *Authenticator, providerName string) string {
	t.Helper()
	redirect, err := auth.BeginAuth(context.Background(), providerName, "/dashboard")
	require.NoError(t, err)
	return redirect.State
}

func TestCompleteAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("provisions a new user from the provider profile", func(t *testing.T) {
		provider := &fakeProvider{
			name:    "google",
			token:   &Token{AccessToken: "ya29.token"},
			profile: googleProfile(),
		}
		users := newFakeUsers()
		sink := &memorySink{}
		auth := newTestAuthenticator(provider, users, sink)

		stateToken := beginFlow(t, auth, "google")

		result, err := auth.CompleteAuth(ctx, "google", "auth-code", stateToken)
		require.NoError(t, err)

		assert.True(t, result.IsNewUser)
		assert.Equal(t, "session-token", result.Token)
		assert.Equal(t, "/dashboard", result.CallbackURL)

		require.Len(t, users.registered, 1)
		created := users.registered[0]
		assert.Equal(t, "test@example.com", created.Email)
		assert.Equal(t, "Test User", created.Name)
		assert.Equal(t, "https://lh3.googleusercontent.com/photo.jpg", created.Image)
		assert.Equal(t, starter.RoleMember, created.Role)
		assert.False(t, created.HasPassword(), "provisioned users have no password")

		require.Len(t, sink.events, 1)
		assert.Equal(t, starter.ActivitySignUp, sink.events[0].Action)

		// The code exchange carried the verifier sealed into the state.
		assert.NotEmpty(t, provider.gotVerifier)
	})

	t.Run("signs in an existing user", func(t *testing.T) {
		provider := &fakeProvider{
			name:    "google",
			token:   &Token{AccessToken: "ya29.token"},
			profile: googleProfile(),
		}
		users := newFakeUsers()
		existing := &starter.User{ID: uuid.New(), Email: "test@example.com", Role: starter.RoleOwner}
		users.byEmail[existing.Email] = existing

		sink := &memorySink{}
		auth := newTestAuthenticator(provider, users, sink)

		result, err := auth.CompleteAuth(ctx, "google", "auth-code", beginFlow(t, auth, "google"))
		require.NoError(t, err)

		assert.False(t, result.IsNewUser)
		assert.Equal(t, existing, result.User)
		assert.Empty(t, users.registered)

		require.Len(t, sink.events, 1)
		assert.Equal(t, starter.ActivitySignIn, sink.events[0].Action)
	})

	t.Run("rejects an unverified email", func(t *testing.T) {
		profile := googleProfile()
		profile.EmailVerified = false

		provider := &fakeProvider{name: "google", token: &Token{AccessToken: "t"}, profile: profile}
		auth := newTestAuthenticator(provider, newFakeUsers(), nil)

		_, err := auth.CompleteAuth(ctx, "google", "auth-code", beginFlow(t, auth, "google"))
		assert.ErrorIs(t, err, ErrEmailNotVerified)
	})

	t.Run("rejects a profile without an email", func(t *testing.T) {
		profile := googleProfile()
		profile.Email = ""

		provider := &fakeProvider{name: "google", token: &Token{AccessToken: "t"}, profile: profile}
		auth := newTestAuthenticator(provider, newFakeUsers(), nil)

		_, err := auth.CompleteAuth(ctx, "google", "auth-code", beginFlow(t, auth, "google"))
		assert.ErrorIs(t, err, ErrMissingEmail)
	})

	t.Run("rejects a state minted for another provider", func(t *testing.T) {
		google := &fakeProvider{name: "google", token: &Token{AccessToken: "t"}, profile: googleProfile()}
		github := &fakeProvider{name: "github", authURL: "https://github.test/auth"}

		auth := NewAuthenticator(newFakeUsers(), stubTokens{token: "x"}, Config{
			StateSecret: "test-state-secret",
		}, WithProvider(google), WithProvider(github))

		stateToken := beginFlow(t, auth, "github")

		_, err := auth.CompleteAuth(ctx, "google", "auth-code", stateToken)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("rejects a tampered state", func(t *testing.T) {
		provider := &fakeProvider{name: "google"}
		auth := newTestAuthenticator(provider, newFakeUsers(), nil)

		_, err := auth.CompleteAuth(ctx, "google", "auth-code", "bogus-state")
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("surfaces exchange failures", func(t *testing.T) {
		provider := &fakeProvider{name: "google", exchangeErr: errors.New("invalid_grant")}
		auth := newTestAuthenticator(provider, newFakeUsers(), nil)

		_, err := auth.CompleteAuth(ctx, "google", "auth-code", beginFlow(t, auth, "google"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token exchange failed")
	})

	t.Run("surfaces user info failures", func(t *testing.T) {
		provider := &fakeProvider{
			name:        "google",
			token:       &Token{AccessToken: "t"},
			userInfoErr: errors.New("401 unauthorized"),
		}
		auth := newTestAuthenticator(provider, newFakeUsers(), nil)

		_, err := auth.CompleteAuth(ctx, "google", "auth-code", beginFlow(t, auth, "google"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to fetch user info")
	})
}

func TestProviders(t *testing.T) {
	auth := NewAuthenticator(newFakeUsers(), stubTokens{}, Config{StateSecret: "s"},
		WithProvider(&fakeProvider{name: "google"}),
	)

	assert.Equal(t, []string{"google"}, auth.Providers())
}
