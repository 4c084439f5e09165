package handlers

import (
	"net/http"

	"github.com/baharkarakas/franchise-backend/internal/api/httpx"
	"github.com/baharkarakas/franchise-backend/internal/services"
)

type FranchiseHandler struct {
	Franchises *services.FranchiseService
}

type createFranchiseReq struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Slug     string `json:"slug" validate:"required,max=64"`
	Timezone string `json:"timezone"`
}

type updateFranchiseReq struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=120"`
	Timezone *string `json:"timezone"`
}

func (h *FranchiseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFranchiseReq
	if err := bind(r, &req); err != nil {
		httpx.Fail(w, r, err)
		return
	}
	f, err := h.Franchises.Create(r.Context(), actor(r), services.FranchiseInput{Name: req.Name, Slug: req.Slug, Timezone: req.Timezone})
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, f)
}

func (h *FranchiseHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r)
	list, err := h.Franchises.List(r.Context(), actor(r), limit, offset)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	writeList(w, list, limit, offset)
}

func (h *FranchiseHandler) Get(w http.ResponseWriter, r *http.Request) {
	f, err := h.Franchises.Get(r.Context(), actor(r), param(r, "id"))
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, f)
}

func (h *FranchiseHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateFranchiseReq
	if err := bind(r, &req); err != nil {
		httpx.Fail(w, r, err)
		return
	}
	f, err := h.Franchises.Update(r.Context(), actor(r), param(r, "id"), services.FranchiseUpdate{Name: req.Name, Timezone: req.Timezone})
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, f)
}

func (h *FranchiseHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	f, err := h.Franchises.Deactivate(r.Context(), actor(r), param(r, "id"))
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, f)
}
