package handlers

import (
	"net/http"

	"github.com/baharkarakas/franchise-backend/internal/api/httpx"
	"github.com/baharkarakas/franchise-backend/internal/models"
	"github.com/baharkarakas/franchise-backend/internal/services"
)

type UserHandler struct {
	Users *services.UserService
}

type createMemberReq struct {
	FranchiseID string `json:"franchise_id" validate:"omitempty,uuid"`
	Email       string `json:"email" validate:"required,email"`
	FullName    string `json:"full_name" validate:"required,min=2"`
	Password    string `json:"password" validate:"required,min=8"`
	Role        string `json:"role" validate:"required,oneof=owner trainer client"`
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMemberReq
	if err := bind(r, &req); err != nil {
		httpx.Fail(w, r, err)
		return
	}
	u, err := h.Users.CreateMember(r.Context(), actor(r), services.MemberInput{
		FranchiseID: req.FranchiseID, Email: req.Email, FullName: req.FullName,
		Password: req.Password, Role: models.Role(req.Role),
	})
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, u)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r)
	q := r.URL.Query()
	list, err := h.Users.List(r.Context(), actor(r), q.Get("franchise_id"), models.Role(q.Get("role")), limit, offset)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	writeList(w, list, limit, offset)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Get(r.Context(), actor(r), param(r, "id"))
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.Delete(r.Context(), actor(r), param(r, "id")); err != nil {
		httpx.Fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) Trainers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Users.ListTrainers(r.Context(), actor(r), r.URL.Query().Get("franchise_id"))
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	writeList(w, list, 0, 0)
}
