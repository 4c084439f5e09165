package handlers

import (
	"net/http"

	"github.com/baharkarakas/franchise-backend/internal/api/httpx"
	"github.com/baharkarakas/franchise-backend/internal/auth"
	"github.com/baharkarakas/franchise-backend/internal/models"
	"github.com/baharkarakas/franchise-backend/internal/services"
)

type AuthHandler struct {
	Users *services.UserService
}

func NewAuthHandler(us *services.UserService) *AuthHandler {
	return &AuthHandler{Users: us}
}

type registerReq struct {
	FranchiseSlug string `json:"franchise_slug" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	FullName      string `json:"full_name" validate:"required,min=2"`
	Password      string `json:"password" validate:"required,min=8"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type sessionResp struct {
	User   models.User    `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := bind(r, &req); err != nil {
		httpx.Fail(w, r, err)
		return
	}
	u, pair, err := h.Users.Register(r.Context(), services.RegisterInput{
		FranchiseSlug: req.FranchiseSlug, Email: req.Email, FullName: req.FullName, Password: req.Password,
	})
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sessionResp{User: u, Tokens: pair})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := bind(r, &req); err != nil {
		httpx.Fail(w, r, err)
		return
	}
	u, pair, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessionResp{User: u, Tokens: pair})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := bind(r, &req); err != nil {
		httpx.Fail(w, r, err)
		return
	}
	pair, err := h.Users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Me(r.Context(), actor(r))
	if err != nil {
		httpx.Fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}
