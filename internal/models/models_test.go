package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalance_Apply(t *testing.T) {
	b := Balance{PurchasedHours: 5, ConsumedHours: 1, LockedHours: 2}

	got, ok := b.Apply(BalanceDelta{Locked: 2})
	assert.True(t, ok)
	assert.Zero(t, got.Available())

	_, ok = b.Apply(BalanceDelta{Locked: 3})
	assert.False(t, ok, "would overdraw")

	_, ok = b.Apply(BalanceDelta{Consumed: -2})
	assert.False(t, ok, "consumed cannot go negative")

	got, ok = b.Apply(BalanceDelta{Consumed: 2, Locked: -2})
	assert.True(t, ok)
	assert.Equal(t, int64(3), got.ConsumedHours)
	assert.Equal(t, int64(2), got.Available())
	assert.Equal(t, int64(2), b.LockedHours, "receiver is not modified")
}

func TestBooking_Overlaps(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	b := Booking{StartsAt: base, EndsAt: base.Add(2 * time.Hour)}

	assert.True(t, b.Overlaps(base.Add(time.Hour), base.Add(3*time.Hour)))
	assert.True(t, b.Overlaps(base.Add(-time.Hour), base.Add(3*time.Hour)))
	assert.False(t, b.Overlaps(base.Add(2*time.Hour), base.Add(3*time.Hour)), "touching ends are fine")
	assert.False(t, b.Overlaps(base.Add(-time.Hour), base))
}

func TestBooking_LockExpired(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	at := now
	b := Booking{Status: BookingPending, LockExpiresAt: &at}

	assert.True(t, b.LockExpired(now))
	assert.False(t, b.LockExpired(now.Add(-time.Second)))

	b.Status = BookingConfirmed
	assert.False(t, b.LockExpired(now.Add(time.Hour)))

	b.Status, b.LockExpiresAt = BookingPending, nil
	assert.False(t, b.LockExpired(now.Add(time.Hour)))
}

func TestUser_Validate(t *testing.T) {
	fid := "f-1"
	u := User{Email: "  Jane@Example.COM ", FullName: " Jane ", FranchiseID: &fid}
	require.NoError(t, u.Validate())
	assert.Equal(t, "jane@example.com", u.Email)
	assert.Equal(t, "Jane", u.FullName)
	assert.Equal(t, RoleClient, u.Role)

	cases := map[string]User{
		"short name":        {Email: "a@b.io", FullName: "J", FranchiseID: &fid},
		"bad email":         {Email: "nope", FullName: "Jane", FranchiseID: &fid},
		"bad role":          {Email: "a@b.io", FullName: "Jane", Role: "boss", FranchiseID: &fid},
		"missing franchise": {Email: "a@b.io", FullName: "Jane", Role: RoleTrainer},
	}
	for name, u := range cases {
		assert.Error(t, u.Validate(), name)
	}

	admin := User{Email: "root@b.io", FullName: "Root", Role: RoleAdmin}
	assert.NoError(t, admin.Validate(), "admins belong to no franchise")
}

func TestActor(t *testing.T) {
	owner := Actor{UserID: "u", Role: RoleOwner, FranchiseID: "f-1"}
	assert.True(t, owner.CanManage("f-1"))
	assert.False(t, owner.CanManage("f-2"))
	assert.True(t, owner.InFranchise("f-1"))

	trainer := Actor{UserID: "t", Role: RoleTrainer, FranchiseID: "f-1"}
	assert.False(t, trainer.CanManage("f-1"))

	admin := Actor{Role: RoleAdmin}
	assert.True(t, admin.CanManage("anything"))
	assert.True(t, admin.InFranchise("anything"))
}
