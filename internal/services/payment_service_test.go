package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/models"
	"github.com/baharkarakas/franchise-backend/internal/payments"
)

func signedEvent(typ, object string) ([]byte, string) {
	payload := []byte(fmt.Sprintf(`{"id":"evt_%d","object":"event","api_version":"2023-10-16","type":%q,"data":{"object":%s}}`,
		time.Now().UnixNano(), typ, object))
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return payload, fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func sessionEvent(typ, paymentID string) ([]byte, string) {
	return signedEvent(typ, fmt.Sprintf(`{"id":"cs_1","object":"checkout.session","client_reference_id":%q}`, paymentID))
}

func TestPriceMinor(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"49.99", 4999, true},
		{"10", 1000, true},
		{" 0.5 ", 50, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"1.999", 0, false},
		{"abc", 0, false},
	}
	for _, c := range cases {
		got, err := priceMinor(c.in)
		if !c.ok {
			assert.Error(t, err, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func (f *fixture) pkg(t *testing.T) models.Package {
	t.Helper()
	p, err := f.payments.CreatePackage(f.ctx, actorOf(f.owner), PackageInput{Name: "Ten pack", Hours: 10, Price: "199.90", Currency: "eur"})
	require.NoError(t, err)
	return p
}

func TestPackages(t *testing.T) {
	f := newFixture(t)
	p := f.pkg(t)
	assert.Equal(t, int64(19990), p.PriceMinor)
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, f.franchise.ID, p.FranchiseID)

	_, err := f.payments.CreatePackage(f.ctx, actorOf(f.trainer), PackageInput{Name: "x", Hours: 1, Price: "1", Currency: "EUR"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	list, err := f.payments.ListPackages(f.ctx, actorOf(f.client), "")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, _, stranger := f.otherFranchise(t)
	assert.ErrorIs(t, f.payments.ArchivePackage(f.ctx, actorOf(stranger), p.ID), apperr.ErrNotFound)
	assert.ErrorIs(t, f.payments.ArchivePackage(f.ctx, actorOf(f.client), p.ID), apperr.ErrForbidden)
	require.NoError(t, f.payments.ArchivePackage(f.ctx, actorOf(f.owner), p.ID))

	list, _ = f.payments.ListPackages(f.ctx, actorOf(f.client), "")
	assert.Empty(t, list)
}

func TestCheckout_CreatesPendingPaymentWithSession(t *testing.T) {
	f := newFixture(t)
	p := f.pkg(t)

	pay, err := f.payments.Checkout(f.ctx, actorOf(f.client), p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, pay.Status)
	assert.Equal(t, "fake", pay.Provider)
	assert.NotEmpty(t, pay.ProviderRef)
	assert.Contains(t, pay.CheckoutURL, pay.ProviderRef)

	sessions := f.gateway.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, pay.ID, sessions[0].PaymentID)
	assert.Equal(t, f.client.Email, sessions[0].CustomerEmail)
	assert.Equal(t, int64(19990), sessions[0].AmountMinor)

	_, err = f.payments.Checkout(f.ctx, actorOf(f.owner), p.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.As(err).Kind)
}

func TestCheckout_GatewayFailureMarksPaymentFailed(t *testing.T) {
	f := newFixture(t)
	p := f.pkg(t)
	f.gateway.FailWith(errors.New("provider down"))

	_, err := f.payments.Checkout(f.ctx, actorOf(f.client), p.ID)
	require.Error(t, err)

	list, err := f.payments.ListPayments(f.ctx, actorOf(f.client), "", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.PaymentFailed, list[0].Status)
}

func TestWebhook_CompletedCreditsHoursOnce(t *testing.T) {
	f := newFixture(t)
	pay, err := f.payments.Checkout(f.ctx, actorOf(f.client), f.pkg(t).ID)
	require.NoError(t, err)

	payload, sig := sessionEvent(payments.EventCheckoutCompleted, pay.ID)
	require.NoError(t, f.payments.HandleWebhook(f.ctx, payload, sig))
	require.NoError(t, f.payments.HandleWebhook(f.ctx, payload, sig), "redelivery is a no-op")

	got, _ := f.store.Payments().GetByID(f.ctx, pay.ID)
	assert.Equal(t, models.PaymentPaid, got.Status)

	bal, _ := f.balances.Current(f.ctx, f.client.ID, f.franchise.ID)
	assert.Equal(t, int64(10), bal.PurchasedHours)

	ns := f.notificationsFor(t, f.client)
	require.Len(t, ns, 1)
	assert.Equal(t, models.NotifyPaymentSucceeded, ns[0].Kind)
}

func TestWebhook_PurchaseFailureKeepsPaymentPending(t *testing.T) {
	f := newFixture(t)
	pay, err := f.payments.Checkout(f.ctx, actorOf(f.client), f.pkg(t).ID)
	require.NoError(t, err)
	f.store.FailNext("balances.apply", errors.New("connection reset"))

	payload, sig := sessionEvent(payments.EventCheckoutCompleted, pay.ID)
	err = f.payments.HandleWebhook(f.ctx, payload, sig)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.As(err).Kind)

	got, _ := f.store.Payments().GetByID(f.ctx, pay.ID)
	assert.Equal(t, models.PaymentPending, got.Status)
	bal, _ := f.balances.Current(f.ctx, f.client.ID, f.franchise.ID)
	assert.Zero(t, bal.PurchasedHours)

	var failed, paid bool
	for _, l := range f.store.AuditLog() {
		failed = failed || l.Action == "credit_failed"
		paid = paid || l.Action == "paid"
	}
	assert.True(t, failed)
	assert.False(t, paid, "the paid transition rolled back with the credit")
	hist, _ := f.balances.History(f.ctx, f.client.ID, f.franchise.ID, 10, 0)
	assert.Empty(t, hist)

	// The provider retries and the second delivery goes through.
	require.NoError(t, f.payments.HandleWebhook(f.ctx, payload, sig))
	bal, _ = f.balances.Current(f.ctx, f.client.ID, f.franchise.ID)
	assert.Equal(t, int64(10), bal.PurchasedHours)
}

func TestWebhook_FailureStatuses(t *testing.T) {
	f := newFixture(t)
	p := f.pkg(t)
	expiring, _ := f.payments.Checkout(f.ctx, actorOf(f.client), p.ID)
	failing, _ := f.payments.Checkout(f.ctx, actorOf(f.client), p.ID)
	paid, _ := f.payments.Checkout(f.ctx, actorOf(f.client), p.ID)

	payload, sig := sessionEvent(payments.EventCheckoutExpired, expiring.ID)
	require.NoError(t, f.payments.HandleWebhook(f.ctx, payload, sig))

	payload, sig = signedEvent(payments.EventPaymentIntentFailed,
		fmt.Sprintf(`{"id":"pi_1","object":"payment_intent","metadata":{"payment_id":%q}}`, failing.ID))
	require.NoError(t, f.payments.HandleWebhook(f.ctx, payload, sig))

	payload, sig = sessionEvent(payments.EventCheckoutCompleted, paid.ID)
	require.NoError(t, f.payments.HandleWebhook(f.ctx, payload, sig))
	payload, sig = sessionEvent(payments.EventAsyncPaymentFailed, paid.ID)
	require.NoError(t, f.payments.HandleWebhook(f.ctx, payload, sig))

	status := func(id string) models.PaymentStatus {
		p, err := f.store.Payments().GetByID(f.ctx, id)
		require.NoError(t, err)
		return p.Status
	}
	assert.Equal(t, models.PaymentExpired, status(expiring.ID))
	assert.Equal(t, models.PaymentFailed, status(failing.ID))
	assert.Equal(t, models.PaymentPaid, status(paid.ID), "paid is never downgraded")
}

func TestWebhook_RejectsAndIgnores(t *testing.T) {
	f := newFixture(t)

	payload, _ := sessionEvent(payments.EventCheckoutCompleted, "x")
	err := f.payments.HandleWebhook(f.ctx, payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, apperr.ErrInvalidSignature)

	payload, sig := signedEvent("customer.created", `{"id":"cus_1","object":"customer"}`)
	assert.NoError(t, f.payments.HandleWebhook(f.ctx, payload, sig))

	payload, sig = sessionEvent(payments.EventCheckoutCompleted, "00000000-0000-0000-0000-000000000000")
	assert.NoError(t, f.payments.HandleWebhook(f.ctx, payload, sig), "unknown payments are acknowledged")
}

func TestListPayments_Scoping(t *testing.T) {
	f := newFixture(t)
	p := f.pkg(t)
	_, err := f.payments.Checkout(f.ctx, actorOf(f.client), p.ID)
	require.NoError(t, err)
	other := f.seedUser(t, f.franchise.ID, models.RoleClient, "other@gym.io")

	mine, _ := f.payments.ListPayments(f.ctx, actorOf(f.client), "", 10, 0)
	assert.Len(t, mine, 1)
	theirs, _ := f.payments.ListPayments(f.ctx, actorOf(other), "", 10, 0)
	assert.Empty(t, theirs)
	all, _ := f.payments.ListPayments(f.ctx, actorOf(f.owner), "", 10, 0)
	assert.Len(t, all, 1)

	_, err = f.payments.ListPayments(f.ctx, admin, "", 10, 0)
	assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind)
	all, _ = f.payments.ListPayments(f.ctx, admin, f.franchise.ID, 10, 0)
	assert.Len(t, all, 1)
}
