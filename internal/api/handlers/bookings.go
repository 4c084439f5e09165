package handlers

import (
	"net/http"
	"time"

	"github.com/baharkarakas/franchise-backend/internal/api/httpx"
	"github.com/baharkarakas/franchise-backend/internal/models"
	"github.com/baharkarakas/franchise-backend/internal/services"
)

type BookingHandler struct {
	Bookings *services.BookingService
}

type createBookingReq struct {
	TrainerID string    `json:"trainer_id" validate:"required,uuid"`
	StartsAt  time.Time `json:"starts_at" validate:"required"`
	EndsAt    time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Note      string    `json:"note" validate:"max=500"`
}

type cancelReq struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookingReq
	if err := bind(r, &req); err != nil {
		httpx.Fail(w, r, err)
		return
	}
	b, err := h.Bookings.Create(r.Context(), actor(r), services.CreateBookingInput{
		TrainerID: req.TrainerID, StartsAt: req.StartsAt, EndsAt: req.EndsAt, Note: req.Note,
	})
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, b)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.BookingFilter{
		FranchiseID: q.Get("franchise_id"),
		ClientID:    q.Get("client_id"),
		TrainerID:   q.Get("trainer_id"),
		Status:      models.BookingStatus(q.Get("status")),
	}
	var err error
	if f.From, err = queryTime(r, "from"); err != nil {
		httpx.Fail(w, r, err)
		return
	}
	if f.To, err = queryTime(r, "to"); err != nil {
		httpx.Fail(w, r, err)
		return
	}
	f.Limit, f.Offset = httpx.Page(r)
	list, err := h.Bookings.List(r.Context(), actor(r), f)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	writeList(w, list, f.Limit, f.Offset)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bookings.Get(r.Context(), actor(r), param(r, "id"))
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bookings.Confirm(r.Context(), actor(r), param(r, "id"))
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

// Cancel accepts an optional {"reason": "..."} body.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelReq
	if r.ContentLength != 0 {
		if err := bind(r, &req); err != nil {
			httpx.Fail(w, r, err)
			return
		}
	}
	b, err := h.Bookings.Cancel(r.Context(), actor(r), param(r, "id"), req.Reason)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bookings.Complete(r.Context(), actor(r), param(r, "id"))
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

// Refund accepts an optional {"reason": "..."} body.
func (h *BookingHandler) Refund(w http.ResponseWriter, r *http.Request) {
	var req cancelReq
	if r.ContentLength != 0 {
		if err := bind(r, &req); err != nil {
			httpx.Fail(w, r, err)
			return
		}
	}
	b, err := h.Bookings.Refund(r.Context(), actor(r), param(r, "id"), req.Reason)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}
