package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
)

func TestFranchise_Create(t *testing.T) {
	f := newFixture(t)

	got, err := f.franchises.Create(f.ctx, admin, FranchiseInput{Name: "Harbor Fitness", Slug: "Harbor-Fit", Timezone: "Europe/Istanbul"})
	require.NoError(t, err)
	assert.Equal(t, "harbor-fit", got.Slug)
	assert.True(t, got.Active)

	def, err := f.franchises.Create(f.ctx, admin, FranchiseInput{Name: "Plain", Slug: "plain"})
	require.NoError(t, err)
	assert.Equal(t, "UTC", def.Timezone)

	_, err = f.franchises.Create(f.ctx, actorOf(f.owner), FranchiseInput{Name: "Mine", Slug: "mine"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	bad := map[string]FranchiseInput{
		"slug":     {Name: "Bad", Slug: "no spaces"},
		"timezone": {Name: "Bad", Slug: "bad-tz", Timezone: "Mars/Olympus"},
		"name":     {Name: "B", Slug: "b"},
	}
	for name, in := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := f.franchises.Create(f.ctx, admin, in)
			assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind)
		})
	}

	_, err = f.franchises.Create(f.ctx, admin, FranchiseInput{Name: "Again", Slug: "downtown"})
	assert.ErrorIs(t, err, apperr.ErrDuplicate)
}

func TestFranchise_UpdateAndAccess(t *testing.T) {
	f := newFixture(t)
	other, _, stranger := f.otherFranchise(t)
	name := "Downtown Gym & Spa"
	tz := "America/New_York"

	_, err := f.franchises.Update(f.ctx, actorOf(f.trainer), f.franchise.ID, FranchiseUpdate{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.franchises.Update(f.ctx, actorOf(f.owner), other.ID, FranchiseUpdate{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := f.franchises.Update(f.ctx, actorOf(f.owner), f.franchise.ID, FranchiseUpdate{Name: &name, Timezone: &tz})
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.Equal(t, tz, got.Timezone)

	_, err = f.franchises.Get(f.ctx, actorOf(stranger), f.franchise.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.franchises.Get(f.ctx, actorOf(f.client), f.franchise.ID)
	assert.NoError(t, err)

	_, err = f.franchises.List(f.ctx, actorOf(f.owner), 10, 0)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	list, err := f.franchises.List(f.ctx, admin, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestFranchise_BySlugIsCached(t *testing.T) {
	f := newFixture(t)

	got, err := f.franchises.BySlug(f.ctx, "downtown")
	require.NoError(t, err)
	assert.Equal(t, f.franchise.ID, got.ID)
	assert.Equal(t, 1, f.cache.Len())

	_, err = f.franchises.Deactivate(f.ctx, actorOf(f.owner), f.franchise.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.franchises.Deactivate(f.ctx, admin, f.franchise.ID)
	require.NoError(t, err)
	assert.Zero(t, f.cache.Len())
}
