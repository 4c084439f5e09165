package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/models"
)

func TestBalance_Lifecycle(t *testing.T) {
	f := newFixture(t)
	uid, fid := f.client.ID, f.franchise.ID

	b, err := f.balances.Current(f.ctx, uid, fid)
	require.NoError(t, err)
	assert.Zero(t, b.Available())

	_, err = f.balances.Purchase(f.ctx, uid, fid, 10, "pay-1", "pack")
	require.NoError(t, err)
	_, err = f.balances.Lock(f.ctx, uid, fid, 4, "bk-1")
	require.NoError(t, err)
	_, err = f.balances.Consume(f.ctx, uid, fid, 3, "bk-1")
	require.NoError(t, err)
	_, err = f.balances.Release(f.ctx, uid, fid, 1, "bk-1")
	require.NoError(t, err)
	b, err = f.balances.Refund(f.ctx, uid, fid, 2, "bk-1", "trainer no-show")
	require.NoError(t, err)

	assert.Equal(t, int64(10), b.PurchasedHours)
	assert.Equal(t, int64(1), b.ConsumedHours)
	assert.Equal(t, int64(0), b.LockedHours)
	assert.Equal(t, int64(9), b.Available())

	hist, err := f.balances.History(f.ctx, uid, fid, 0, 0)
	require.NoError(t, err)
	require.Len(t, hist, 5)
	assert.Equal(t, models.LedgerRefund, hist[0].Kind, "newest first")
	assert.Equal(t, int64(-2), hist[0].Hours)
	assert.Equal(t, int64(1), hist[0].ConsumedAfter)
	assert.Equal(t, models.LedgerPurchase, hist[4].Kind)
	require.NotNil(t, hist[4].PaymentID)
	assert.Equal(t, "pay-1", *hist[4].PaymentID)
}

func TestBalance_RejectsMovesThatBreakTheInvariant(t *testing.T) {
	f := newFixture(t)
	uid, fid := f.client.ID, f.franchise.ID
	f.give(t, f.client, 2)

	_, err := f.balances.Lock(f.ctx, uid, fid, 3, "")
	assert.ErrorIs(t, err, apperr.ErrInsufficientHours)

	_, err = f.balances.Consume(f.ctx, uid, fid, 1, "")
	assert.ErrorIs(t, err, apperr.ErrInsufficientHours, "nothing locked")

	_, err = f.balances.Refund(f.ctx, uid, fid, 1, "", "")
	assert.ErrorIs(t, err, apperr.ErrInsufficientHours, "nothing consumed")

	for _, h := range []int64{0, -1} {
		_, err = f.balances.Lock(f.ctx, uid, fid, h, "")
		assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind)
	}

	b, _ := f.balances.Current(f.ctx, uid, fid)
	assert.Equal(t, int64(2), b.Available())
}

func TestBalance_LedgerFailureRollsBackCounters(t *testing.T) {
	f := newFixture(t)
	f.store.FailNext("ledger.create", errors.New("disk full"))

	_, err := f.balances.Purchase(f.ctx, f.client.ID, f.franchise.ID, 5, "", "")
	require.Error(t, err)

	b, _ := f.balances.Current(f.ctx, f.client.ID, f.franchise.ID)
	assert.Zero(t, b.PurchasedHours)
	hist, _ := f.balances.History(f.ctx, f.client.ID, f.franchise.ID, 10, 0)
	assert.Empty(t, hist)
}

func TestBalance_WritesAuditRecords(t *testing.T) {
	f := newFixture(t)
	f.give(t, f.client, 3)

	logs := f.store.AuditLog()
	require.NotEmpty(t, logs)
	last := logs[len(logs)-1]
	assert.Equal(t, "balance", last.EntityType)
	assert.Equal(t, "ledger.purchase", last.Action)
	require.NotNil(t, last.EntityID)
	assert.Equal(t, f.client.ID, *last.EntityID)
}

func TestBalance_Adjust(t *testing.T) {
	f := newFixture(t)
	f.give(t, f.client, 4)
	_, err := f.balances.Lock(f.ctx, f.client.ID, f.franchise.ID, 3, "")
	require.NoError(t, err)
	owner := actorOf(f.owner)

	_, err = f.balances.Adjust(f.ctx, actorOf(f.trainer), f.client.ID, 2, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.balances.Adjust(f.ctx, owner, f.client.ID, 0, "")
	assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind)

	_, err = f.balances.Adjust(f.ctx, owner, f.client.ID, -2, "typo")
	assert.ErrorIs(t, err, apperr.ErrInsufficientHours, "only one hour is available")

	b, err := f.balances.Adjust(f.ctx, owner, f.client.ID, -1, "typo")
	require.NoError(t, err)
	assert.Equal(t, int64(3), b.PurchasedHours)
	assert.Zero(t, b.Available())

	ns := f.notificationsFor(t, f.client)
	require.Len(t, ns, 1)
	assert.Equal(t, models.NotifyBalanceAdjusted, ns[0].Kind)
}

func TestBalance_Visibility(t *testing.T) {
	f := newFixture(t)
	_, _, stranger := f.otherFranchise(t)
	f.give(t, f.client, 1)

	_, err := f.balances.Visible(f.ctx, actorOf(f.client), f.client.ID)
	assert.NoError(t, err)
	_, err = f.balances.Visible(f.ctx, actorOf(f.owner), f.client.ID)
	assert.NoError(t, err)
	_, err = f.balances.Visible(f.ctx, admin, f.client.ID)
	assert.NoError(t, err)

	_, err = f.balances.Visible(f.ctx, actorOf(stranger), f.client.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	other := f.seedUser(t, f.franchise.ID, models.RoleClient, "other@gym.io")
	_, err = f.balances.VisibleHistory(f.ctx, actorOf(other), f.client.ID, 10, 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
