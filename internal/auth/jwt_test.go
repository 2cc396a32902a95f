package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamreact/companion/internal/domain"
)

func testIdentity() domain.Identity {
	return domain.Identity{ID: "u1", Username: "alice", Email: "alice@example.com", Role: domain.RoleUser}
}

func TestIssueAndVerify(t *testing.T) {
	v := NewJWTVerifier("secret", time.Hour)

	token, err := v.Issue(testIdentity())
	require.NoError(t, err)

	identity, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, testIdentity(), *identity)
}

func TestVerifyAcceptsBearerPrefix(t *testing.T) {
	v := NewJWTVerifier("secret", time.Hour)
	token, err := v.Issue(testIdentity())
	require.NoError(t, err)

	identity, err := v.Verify("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.ID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTVerifier("one", time.Hour).Issue(testIdentity())
	require.NoError(t, err)

	_, err = NewJWTVerifier("two", time.Hour).Verify(token)
	assert.ErrorIs(t, err, domain.ErrVerification)
}

func TestVerifyRejectsExpired(t *testing.T) {
	v := NewJWTVerifier("secret", time.Minute)
	v.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := v.Issue(testIdentity())
	require.NoError(t, err)

	v.now = time.Now
	_, err = v.Verify(token)
	require.ErrorIs(t, err, domain.ErrVerification)
	assert.Contains(t, err.Error(), "expired")
}

func TestVerifyRejectsGarbageAndEmpty(t *testing.T) {
	v := NewJWTVerifier("secret", time.Hour)

	_, err := v.Verify("")
	assert.ErrorIs(t, err, domain.ErrVerification)

	_, err = v.Verify("not-a-token")
	assert.ErrorIs(t, err, domain.ErrVerification)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{UserID: "u1", Username: "alice"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTVerifier("secret", time.Hour).Verify(token)
	assert.ErrorIs(t, err, domain.ErrVerification)
}

func TestVerifyNormalisesUnknownRole(t *testing.T) {
	v := NewJWTVerifier("secret", time.Hour)
	id := testIdentity()
	id.Role = "moderator"
	token, err := v.Issue(id)
	require.NoError(t, err)

	identity, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, identity.Role)
	assert.False(t, identity.IsAdmin())
}

func TestVerifyRequiresID(t *testing.T) {
	v := NewJWTVerifier("secret", time.Hour)
	token, err := v.Issue(domain.Identity{Username: "ghost"})
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, domain.ErrVerification)
}
