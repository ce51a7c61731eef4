package auth

import (
	"context"
	"testing"
	"time"

	"pdv/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestVerifyIssuedToken(t *testing.T) {
	token, err := IssueToken(secret, "owner-1", time.Hour)
	require.NoError(t, err)

	sess, err := NewVerifier(secret).VerifyHeader("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", sess.OwnerID)
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier(secret)

	expired, err := IssueToken(secret, "owner-1", -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	foreign, err := IssueToken("other-secret", "owner-1", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = v.Verify(noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.VerifyHeader("Basic abc")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = v.VerifyHeader("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestIssueTokenNeedsSecret(t *testing.T) {
	_, err := IssueToken(" ", "owner-1", time.Hour)
	assert.Error(t, err)
}

func TestSessionContext(t *testing.T) {
	_, ok := SessionFrom(context.Background())
	assert.False(t, ok)

	ctx := WithSession(context.Background(), domain.Session{OwnerID: "owner-9"})
	sess, ok := SessionFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "owner-9", sess.OwnerID)
}
