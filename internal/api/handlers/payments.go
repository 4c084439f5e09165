package handlers

import (
	"io"
	"net/http"

	"github.com/baharkarakas/franchise-backend/internal/api/httpx"
	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/services"
)

// Stripe caps webhook payloads well below this.
const maxWebhookBytes = 64 << 10

type PaymentHandler struct {
	Payments *services.PaymentService
}

type createPackageReq struct {
	FranchiseID string `json:"franchise_id" validate:"omitempty,uuid"`
	Name        string `json:"name" validate:"required,min=2,max=120"`
	Hours       int64  `json:"hours" validate:"required,gt=0,lte=500"`
	Price       string `json:"price" validate:"required,numeric"`
	Currency    string `json:"currency" validate:"omitempty,len=3,alpha"`
}

type checkoutReq struct {
	PackageID string `json:"package_id" validate:"required,uuid"`
}

type checkoutResp struct {
	PaymentID   string `json:"payment_id"`
	Status      string `json:"status"`
	CheckoutURL string `json:"checkout_url"`
}

func (h *PaymentHandler) CreatePackage(w http.ResponseWriter, r *http.Request) {
	var req createPackageReq
	if err := bind(r, &req); err != nil {
		httpx.Fail(w, r, err)
		return
	}
	p, err := h.Payments.CreatePackage(r.Context(), actor(r), services.PackageInput{
		FranchiseID: req.FranchiseID, Name: req.Name, Hours: req.Hours, Price: req.Price, Currency: req.Currency,
	})
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *PaymentHandler) ListPackages(w http.ResponseWriter, r *http.Request) {
	list, err := h.Payments.ListPackages(r.Context(), actor(r), r.URL.Query().Get("franchise_id"))
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	writeList(w, list, 0, 0)
}

func (h *PaymentHandler) ArchivePackage(w http.ResponseWriter, r *http.Request) {
	if err := h.Payments.ArchivePackage(r.Context(), actor(r), param(r, "id")); err != nil {
		httpx.Fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PaymentHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := bind(r, &req); err != nil {
		httpx.Fail(w, r, err)
		return
	}
	p, err := h.Payments.Checkout(r.Context(), actor(r), req.PackageID)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, checkoutResp{PaymentID: p.ID, Status: string(p.Status), CheckoutURL: p.CheckoutURL})
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r)
	list, err := h.Payments.ListPayments(r.Context(), actor(r), r.URL.Query().Get("franchise_id"), limit, offset)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	writeList(w, list, limit, offset)
}

// Webhook is unauthenticated; the payload signature is the credential.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		httpx.Fail(w, r, apperr.Validation("webhook payload too large").Wrap(err))
		return
	}
	if err := h.Payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}
