package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/prperemyshlev/videotube-users/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	accessSecret  = "access-secret-key-that-is-at-least-32-characters"
	refreshSecret = "refresh-secret-key-that-is-at-least-32-characters"
)

func newTestManager() *JWTManager {
	return NewJWTManager(accessSecret, refreshSecret, 15*time.Minute, 10*24*time.Hour)
}

func testUser() *domain.User {
	return &domain.User{
		ID:       primitive.NewObjectID(),
		Username: "alice",
		Email:    "alice@x.com",
		FullName: "Alice",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager()
	user := testUser()

	token, err := m.IssueAccessToken(user)
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@x.com", claims.Email)
	assert.Equal(t, user.ID.Hex(), claims.Identity().UserID)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := newTestManager()
	userID := primitive.NewObjectID().Hex()

	token, err := m.IssueRefreshToken(userID)
	require.NoError(t, err)

	got, err := m.VerifyRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestRefreshTokensAreUnique(t *testing.T) {
	m := newTestManager()
	userID := primitive.NewObjectID().Hex()

	first, err := m.IssueRefreshToken(userID)
	require.NoError(t, err)
	second, err := m.IssueRefreshToken(userID)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	m := newTestManager()
	user := testUser()

	access, err := m.IssueAccessToken(user)
	require.NoError(t, err)
	refresh, err := m.IssueRefreshToken(user.ID.Hex())
	require.NoError(t, err)

	_, err = m.VerifyRefreshToken(access)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = m.VerifyAccessToken(refresh)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	m := newTestManager()
	other := NewJWTManager(
		"another-access-secret-that-is-32-characters-long",
		"another-refresh-secret-that-is-32-characters-long",
		time.Minute, time.Hour,
	)

	token, err := other.IssueAccessToken(testUser())
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredTokens(t *testing.T) {
	m := newTestManager()
	m.now = func() time.Time { return time.Now().Add(-30 * 24 * time.Hour) }

	access, err := m.IssueAccessToken(testUser())
	require.NoError(t, err)
	refresh, err := m.IssueRefreshToken(primitive.NewObjectID().Hex())
	require.NoError(t, err)

	m.now = time.Now

	_, err = m.VerifyAccessToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.VerifyRefreshToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyUsesManagerClock(t *testing.T) {
	m := newTestManager()
	frozen := time.Date(2020, time.January, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return frozen }

	access, err := m.IssueAccessToken(testUser())
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, frozen.Add(15*time.Minute).Unix(), claims.Exp)

	m.now = func() time.Time { return frozen.Add(16 * time.Minute) }
	_, err = m.VerifyAccessToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := newTestManager()

	_, err := m.VerifyAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.VerifyRefreshToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("pw123", 4)
	require.NoError(t, err)

	assert.NotEqual(t, "pw123", hash)
	assert.True(t, CheckPasswordHash("pw123", hash))
	assert.False(t, CheckPasswordHash("pw124", hash))
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidateEmail("alice@x.com"))
	assert.False(t, ValidateEmail("alice"))
	assert.Equal(t, "alice@x.com", SanitizeEmail("  Alice@X.com "))
	assert.Equal(t, "alice", NormalizeUsername(" ALICE "))
	assert.True(t, AnyBlank("a", "  "))
	assert.False(t, AnyBlank("a", "b"))
}
