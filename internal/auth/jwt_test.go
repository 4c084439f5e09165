package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/franchise-backend/internal/models"
)

func newTM() *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", "test", time.Minute, time.Hour)
}

func TestGeneratePair_RoundTrip(t *testing.T) {
	tm := newTM()
	actor := models.Actor{UserID: "u1", Role: models.RoleTrainer, FranchiseID: "f1"}

	pair, err := tm.GeneratePair(actor)
	require.NoError(t, err)

	c, err := tm.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, actor, c.Actor())

	r, err := tm.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", r.UserID)
}

func TestParse_RejectsWrongType(t *testing.T) {
	tm := newTM()
	pair, err := tm.GeneratePair(models.Actor{UserID: "u1", Role: models.RoleClient, FranchiseID: "f1"})
	require.NoError(t, err)

	_, err = tm.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = tm.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_RejectsExpired(t *testing.T) {
	tm := newTM()
	start := time.Now()
	tm.now = func() time.Time { return start }
	pair, err := tm.GeneratePair(models.Actor{UserID: "u1", Role: models.RoleClient})
	require.NoError(t, err)

	tm.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = tm.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_RejectsOtherIssuer(t *testing.T) {
	other := NewTokenManager("access-secret", "refresh-secret", "someone-else", time.Minute, time.Hour)
	pair, err := other.GeneratePair(models.Actor{UserID: "u1", Role: models.RoleClient})
	require.NoError(t, err)

	_, err = newTM().ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)

	assert.NoError(t, VerifyPassword("s3cret-pass", hash))
	assert.Error(t, VerifyPassword("wrong", hash))
}
