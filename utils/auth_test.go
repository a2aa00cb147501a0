package utils

import (
	"testing"
	"time"

	"github.com/Govind-619/FarmMart/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testUser() *models.User {
	return &models.User{Model: gorm.Model{ID: 42}, Email: "farmer@example.co.ke"}
}

func TestTokenRoundTrip(t *testing.T) {
	InitAuth("test-secret", time.Minute, time.Hour)

	pair, err := GenerateTokenPair(testUser())
	require.NoError(t, err)
	assert.Equal(t, int64(60), pair.ExpiresIn)

	access, err := ParseToken(pair.AccessToken, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(42), access.UserID)
	assert.Equal(t, "farmer@example.co.ke", access.Email)
	assert.NotEmpty(t, access.Id)

	refresh, err := ParseToken(pair.RefreshToken, TokenRefresh)
	require.NoError(t, err)
	assert.NotEqual(t, access.Id, refresh.Id)
	assert.True(t, refresh.ExpiresAtTime().After(access.ExpiresAtTime()))
}

func TestParseTokenRejectsWrongKind(t *testing.T) {
	InitAuth("test-secret", 0, 0)
	token, _, err := GenerateToken(testUser(), TokenRefresh)
	require.NoError(t, err)

	_, err = ParseToken(token, TokenAccess)
	assert.Error(t, err)
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	InitAuth("one-secret", 0, 0)
	token, _, err := GenerateToken(testUser(), TokenAccess)
	require.NoError(t, err)

	InitAuth("another-secret", 0, 0)
	_, err = ParseToken(token, TokenAccess)
	assert.Error(t, err)

	_, err = ParseToken("not-a-jwt", TokenAccess)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Secret123")
	require.NoError(t, err)
	assert.True(t, CheckPassword("Secret123", hash))
	assert.False(t, CheckPassword("secret123", hash))
}
