package starter

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionObjectGetters(t *testing.T) {
	id := uuid.New()
	issued := time.Now().Add(-time.Minute)

	session := &SessionObject{
		UserID:   id.String(),
		Role:     RoleMember,
		Issuer:   "test-issuer",
		IssuedAt: &issued,
	}

	assert.Equal(t, id.String(), session.GetUserID())
	assert.Equal(t, RoleMember, session.GetRole())
	assert.Equal(t, "test-issuer", session.GetIssuer())
	assert.Equal(t, &issued, session.GetIssuedAt())

	parsed, err := session.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestSessionObjectGetUserUUIDRejectsNonUUID(t *testing.T) {
	session := &SessionObject{UserID: "not-a-uuid"}

	_, err := session.GetUserUUID()
	assert.Error(t, err)
}

func TestSessionFromAuthClaims(t *testing.T) {
	t.Run("maps claims onto a session", func(t *testing.T) {
		now := time.Now()
		claims := &JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "test-issuer",
				Subject:   "user-1",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			UID:      "user-1",
			UserRole: RoleOwner,
		}

		session, err := sessionFromAuthClaims(claims)
		require.NoError(t, err)

		assert.Equal(t, "user-1", session.GetUserID())
		assert.Equal(t, RoleOwner, session.GetRole())
		assert.Equal(t, "test-issuer", session.GetIssuer())
		require.NotNil(t, session.IssuedAt)
		assert.WithinDuration(t, now, *session.IssuedAt, time.Second)
		require.NotNil(t, session.ExpirationDate)
		assert.WithinDuration(t, now.Add(time.Hour), *session.ExpirationDate, time.Second)
	})

	t.Run("rejects nil claims", func(t *testing.T) {
		_, err := sessionFromAuthClaims(nil)
		assert.ErrorIs(t, err, ErrUnableToDecodeSession)
	})
}

func TestJWTClaimsUserIDFallsBackToSubject(t *testing.T) {
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-1"},
	}
	assert.Equal(t, "subject-1", claims.UserID())

	claims.UID = "uid-1"
	assert.Equal(t, "uid-1", claims.UserID())
}

func TestJWTClaimsZeroTimes(t *testing.T) {
	claims := &JWTClaims{}
	assert.True(t, claims.Expires().IsZero())
	assert.True(t, claims.IssuedAt().IsZero())
}
