package handlers

import (
	"net/http"

	"github.com/baharkarakas/franchise-backend/internal/api/httpx"
	"github.com/baharkarakas/franchise-backend/internal/models"
	"github.com/baharkarakas/franchise-backend/internal/services"
)

type BalanceHandler struct {
	Balances *services.BalanceService
}

type balanceResp struct {
	models.Balance
	AvailableHours int64 `json:"available_hours"`
}

func withAvailable(b models.Balance) balanceResp {
	return balanceResp{Balance: b, AvailableHours: b.Available()}
}

type adjustReq struct {
	Delta int64  `json:"delta" validate:"required"`
	Note  string `json:"note" validate:"max=500"`
}

func (h *BalanceHandler) Mine(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	b, err := h.Balances.Visible(r.Context(), a, a.UserID)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, withAvailable(b))
}

func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.Balances.Visible(r.Context(), actor(r), param(r, "userID"))
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, withAvailable(b))
}

func (h *BalanceHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r)
	entries, err := h.Balances.VisibleHistory(r.Context(), actor(r), param(r, "userID"), limit, offset)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	writeList(w, entries, limit, offset)
}

func (h *BalanceHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustReq
	if err := bind(r, &req); err != nil {
		httpx.Fail(w, r, err)
		return
	}
	b, err := h.Balances.Adjust(r.Context(), actor(r), param(r, "userID"), req.Delta, req.Note)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, withAvailable(b))
}
