package social

import (
	"context"
	"net/http"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingSessions struct {
	tokens []string
}

func (s *recordingSessions) SetSessionToken(_ router.Context, token string) {
	s.tokens = append(s.tokens, token)
}

func TestHTTPControllerBeginAuth(t *testing.T) {
	t.Run("redirects to the provider", func(t *testing.T) {
		provider := &fakeProvider{name: "google", authURL: "https://accounts.google.test/auth"}
		auth := newTestAuthenticator(provider, newFakeUsers(), nil)
		controller := NewHTTPController(auth, &recordingSessions{}, HTTPConfig{})

		ctx := router.NewMockContext()
		ctx.ParamsM["provider"] = "google"
		ctx.QueriesM["callbackUrl"] = "/dashboard/settings"
		ctx.On("Context").Return(context.Background())

		var redirectURL string
		ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
			redirectURL = args.String(0)
		}).Return(nil)

		require.NoError(t, controller.BeginAuth(ctx))
		assert.Contains(t, redirectURL, "https://accounts.google.test/auth")
		assert.Contains(t, redirectURL, "state=")
	})

	t.Run("unknown provider lands on the error redirect", func(t *testing.T) {
		auth := newTestAuthenticator(&fakeProvider{name: "google"}, newFakeUsers(), nil)
		controller := NewHTTPController(auth, &recordingSessions{}, HTTPConfig{})

		ctx := router.NewMockContext()
		ctx.ParamsM["provider"] = "github"
		ctx.On("Context").Return(context.Background())

		var redirectURL string
		ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
			redirectURL = args.String(0)
		}).Return(nil)

		require.NoError(t, controller.BeginAuth(ctx))
		assert.Contains(t, redirectURL, "/sign-in")
		assert.Contains(t, redirectURL, "error=auth_failed")
	})
}

func TestHTTPControllerCallback(t *testing.T) {
	newFlow := func(t *testing.T) (*Authenticator, *fakeProvider, *fakeUsers) {
		t.Helper()
		provider := &fakeProvider{
			name:    "google",
			authURL: "https://accounts.google.test/auth",
			token:   &Token{AccessToken: "ya29.token"},
			profile: googleProfile(),
		}
		users := newFakeUsers()
		return newTestAuthenticator(provider, users, nil), provider, users
	}

	t.Run("sets the session and follows the callback", func(t *testing.T) {
		auth, _, users := newFlow(t)
		sessions := &recordingSessions{}
		controller := NewHTTPController(auth, sessions, HTTPConfig{})

		redirect, err := auth.BeginAuth(context.Background(), "google", "/dashboard/settings")
		require.NoError(t, err)

		ctx := router.NewMockContext()
		ctx.ParamsM["provider"] = "google"
		ctx.QueriesM["code"] = "auth-code"
		ctx.QueriesM["state"] = redirect.State
		ctx.HeadersM["X-Forwarded-For"] = "203.0.113.9"
		ctx.On("Context").Return(context.Background())

		var redirectURL string
		ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
			redirectURL = args.String(0)
		}).Return(nil)

		require.NoError(t, controller.Callback(ctx))

		assert.Equal(t, []string{"session-token"}, sessions.tokens)
		assert.Equal(t, "/dashboard/settings", redirectURL)
		require.Len(t, users.registered, 1)
	})

	t.Run("provider errors short circuit", func(t *testing.T) {
		auth, _, _ := newFlow(t)
		controller := NewHTTPController(auth, &recordingSessions{}, HTTPConfig{})

		ctx := router.NewMockContext()
		ctx.ParamsM["provider"] = "google"
		ctx.QueriesM["error"] = "access_denied"

		var redirectURL string
		ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
			redirectURL = args.String(0)
		}).Return(nil)

		require.NoError(t, controller.Callback(ctx))
		assert.Contains(t, redirectURL, "oauth_error=access_denied")
	})

	t.Run("missing code or state short circuits", func(t *testing.T) {
		auth, _, _ := newFlow(t)
		controller := NewHTTPController(auth, &recordingSessions{}, HTTPConfig{})

		ctx := router.NewMockContext()
		ctx.ParamsM["provider"] = "google"
		ctx.QueriesM["code"] = "auth-code"

		var redirectURL string
		ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
			redirectURL = args.String(0)
		}).Return(nil)

		require.NoError(t, controller.Callback(ctx))
		assert.Contains(t, redirectURL, "error=missing_params")
	})

	t.Run("a bad state lands on the error redirect", func(t *testing.T) {
		auth, _, _ := newFlow(t)
		sessions := &recordingSessions{}
		controller := NewHTTPController(auth, sessions, HTTPConfig{})

		ctx := router.NewMockContext()
		ctx.ParamsM["provider"] = "google"
		ctx.QueriesM["code"] = "auth-code"
		ctx.QueriesM["state"] = "forged-state"
		ctx.On("Context").Return(context.Background())

		var redirectURL string
		ctx.On("Redirect", mock.Anything, []int{http.StatusTemporaryRedirect}).Run(func(args mock.Arguments) {
			redirectURL = args.String(0)
		}).Return(nil)

		require.NoError(t, controller.Callback(ctx))
		assert.Contains(t, redirectURL, "error=auth_failed")
		assert.Empty(t, sessions.tokens)
	})
}

func TestSanitizeCallback(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"/dashboard", "/dashboard"},
		{"/dashboard/settings?tab=billing", "/dashboard/settings?tab=billing"},
		{"https://evil.example/phish", ""},
		{"//evil.example", ""},
		{"dashboard", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeCallback(tt.raw), tt.raw)
	}
}
