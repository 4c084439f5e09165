package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/models"
)

func TestRegisterLoginRefresh(t *testing.T) {
	f := newFixture(t)

	u, pair, err := f.users.Register(f.ctx, RegisterInput{
		FranchiseSlug: "Downtown", Email: "New@Client.io", FullName: "New Client", Password: "s3cretpass",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, u.Role)
	assert.Equal(t, "new@client.io", u.Email)
	assert.NotEmpty(t, pair.AccessToken)

	claims, err := f.tokens.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.franchise.ID, claims.FranchiseID)

	_, _, err = f.users.Login(f.ctx, "new@client.io", "wrong-password")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	_, _, err = f.users.Login(f.ctx, "nobody@client.io", "s3cretpass")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	logged, pair, err := f.users.Login(f.ctx, " NEW@client.io ", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)

	refreshed, err := f.users.Refresh(f.ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = f.users.Refresh(f.ctx, pair.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized, "access tokens cannot refresh")

	_, _, err = f.users.Register(f.ctx, RegisterInput{FranchiseSlug: "downtown", Email: "new@client.io", FullName: "Dup", Password: "s3cretpass"})
	assert.Equal(t, apperr.KindConflict, apperr.As(err).Kind)
}

func TestRegister_Rejections(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.users.Register(f.ctx, RegisterInput{FranchiseSlug: "nope", Email: "a@b.io", FullName: "Ab", Password: "s3cretpass"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, _, err = f.users.Register(f.ctx, RegisterInput{FranchiseSlug: "downtown", Email: "a@b.io", FullName: "Ab", Password: "short"})
	assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind)

	_, err = f.franchises.Deactivate(f.ctx, admin, f.franchise.ID)
	require.NoError(t, err)
	_, _, err = f.users.Register(f.ctx, RegisterInput{FranchiseSlug: "downtown", Email: "a@b.io", FullName: "Ab", Password: "s3cretpass"})
	assert.ErrorIs(t, err, apperr.ErrNotFound, "deactivation invalidates the cached slug lookup")
}

func TestLogin_InactiveFranchise(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.users.Register(f.ctx, RegisterInput{FranchiseSlug: "downtown", Email: "a@b.io", FullName: "Ab", Password: "s3cretpass"})
	require.NoError(t, err)
	_, err = f.franchises.Deactivate(f.ctx, admin, f.franchise.ID)
	require.NoError(t, err)

	_, _, err = f.users.Login(f.ctx, "a@b.io", "s3cretpass")
	assert.Equal(t, apperr.KindForbidden, apperr.As(err).Kind)
}

func TestCreateMember_Permissions(t *testing.T) {
	f := newFixture(t)
	in := MemberInput{Email: "coach@gym.io", FullName: "Coach", Password: "s3cretpass", Role: models.RoleTrainer}

	_, err := f.users.CreateMember(f.ctx, actorOf(f.trainer), in)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	adminIn := in
	adminIn.Role = models.RoleAdmin
	_, err = f.users.CreateMember(f.ctx, actorOf(f.owner), adminIn)
	assert.Equal(t, apperr.KindForbidden, apperr.As(err).Kind)

	u, err := f.users.CreateMember(f.ctx, actorOf(f.owner), in)
	require.NoError(t, err)
	require.NotNil(t, u.FranchiseID)
	assert.Equal(t, f.franchise.ID, *u.FranchiseID)

	_, err = f.users.CreateMember(f.ctx, admin, MemberInput{Email: "x@gym.io", FullName: "Xx", Password: "s3cretpass", Role: models.RoleOwner})
	assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind, "admins must name the franchise")
}

func TestListTrainers_CachedAndInvalidated(t *testing.T) {
	f := newFixture(t)
	client := actorOf(f.client)

	trainers, err := f.users.ListTrainers(f.ctx, client, "")
	require.NoError(t, err)
	require.Len(t, trainers, 1)

	// Written straight to the store: the cached list does not see it.
	f.seedUser(t, f.franchise.ID, models.RoleTrainer, "sneaky@gym.io")
	trainers, _ = f.users.ListTrainers(f.ctx, client, "")
	assert.Len(t, trainers, 1)

	_, err = f.users.CreateMember(f.ctx, actorOf(f.owner), MemberInput{Email: "coach@gym.io", FullName: "Coach", Password: "s3cretpass", Role: models.RoleTrainer})
	require.NoError(t, err)
	trainers, _ = f.users.ListTrainers(f.ctx, client, "")
	assert.Len(t, trainers, 3)
}

func TestUsers_GetListDelete(t *testing.T) {
	f := newFixture(t)
	_, _, stranger := f.otherFranchise(t)
	peer := f.seedUser(t, f.franchise.ID, models.RoleClient, "peer@gym.io")

	_, err := f.users.Get(f.ctx, actorOf(f.client), f.trainer.ID)
	assert.NoError(t, err, "clients see trainers")
	_, err = f.users.Get(f.ctx, actorOf(f.client), peer.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "but not other clients")
	_, err = f.users.Get(f.ctx, actorOf(stranger), f.trainer.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.users.List(f.ctx, actorOf(f.client), "", "", 10, 0)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	list, err := f.users.List(f.ctx, actorOf(f.owner), "", models.RoleClient, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	assert.ErrorIs(t, f.users.Delete(f.ctx, actorOf(f.trainer), peer.ID), apperr.ErrForbidden)
	assert.ErrorIs(t, f.users.Delete(f.ctx, actorOf(stranger), peer.ID), apperr.ErrNotFound)
	assert.Equal(t, apperr.KindValidation, apperr.As(f.users.Delete(f.ctx, actorOf(f.owner), f.owner.ID)).Kind)
	require.NoError(t, f.users.Delete(f.ctx, actorOf(f.owner), peer.ID))
	_, err = f.users.Get(f.ctx, actorOf(f.owner), peer.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUsers_DeleteRefusedWithHistory(t *testing.T) {
	f := newFixture(t)
	owner := actorOf(f.owner)
	f.give(t, f.client, 2)
	_, err := f.bookings.Create(f.ctx, actorOf(f.client), f.slot(2, 1))
	require.NoError(t, err)

	buyer := f.seedUser(t, f.franchise.ID, models.RoleClient, "buyer@gym.io")
	_, err = f.payments.Checkout(f.ctx, actorOf(buyer), f.pkg(t).ID)
	require.NoError(t, err)

	for _, u := range []models.User{f.client, f.trainer, buyer} {
		err := f.users.Delete(f.ctx, owner, u.ID)
		assert.ErrorIs(t, err, apperr.ErrUserHasHistory, u.Email)
		assert.Equal(t, apperr.KindConflict, apperr.As(err).Kind)

		_, err = f.users.Get(f.ctx, owner, u.ID)
		assert.NoError(t, err, "%s is kept", u.Email)
	}
	for _, l := range f.store.AuditLog() {
		assert.NotEqual(t, "deleted", l.Action)
	}
}
