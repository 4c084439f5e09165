package services

import (
	"context"
	"errors"
	"strings"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/auth"
	"github.com/baharkarakas/franchise-backend/internal/cache"
	"github.com/baharkarakas/franchise-backend/internal/models"
	repo "github.com/baharkarakas/franchise-backend/internal/repository"
)

func trainersKey(franchiseID string) string { return "trainers:" + franchiseID }

type UserService struct {
	store      repo.Store
	tokens     *auth.TokenManager
	franchises *FranchiseService
	cache      *cache.Loader
}

func NewUserService(st repo.Store, tm *auth.TokenManager, fs *FranchiseService, c *cache.Loader) *UserService {
	return &UserService{store: st, tokens: tm, franchises: fs, cache: c}
}

type RegisterInput struct {
	FranchiseSlug string
	Email         string
	FullName      string
	Password      string
}

type MemberInput struct {
	FranchiseID string
	Email       string
	FullName    string
	Password    string
	Role        models.Role
}

// Register signs a client up to an active franchise and logs them in.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, auth.TokenPair, error) {
	f, err := s.franchises.BySlug(ctx, in.FranchiseSlug)
	if err != nil {
		return models.User{}, auth.TokenPair{}, err
	}
	if !f.Active {
		return models.User{}, auth.TokenPair{}, apperr.ErrNotFound
	}
	u, err := s.create(ctx, "", MemberInput{
		FranchiseID: f.ID, Email: in.Email, FullName: in.FullName, Password: in.Password, Role: models.RoleClient,
	})
	if err != nil {
		return models.User{}, auth.TokenPair{}, err
	}
	pair, err := s.tokens.GeneratePair(actorOf(u))
	if err != nil {
		return models.User{}, auth.TokenPair{}, apperr.Internal("token generation failed", err)
	}
	return u, pair, nil
}

func (s *UserService) CreateMember(ctx context.Context, actor models.Actor, in MemberInput) (models.User, error) {
	if in.FranchiseID == "" {
		in.FranchiseID = actor.FranchiseID
	}
	if in.FranchiseID == "" {
		return models.User{}, apperr.Validation("franchise_id is required")
	}
	if in.Role == models.RoleAdmin {
		return models.User{}, apperr.Forbidden("admins cannot be created through the API")
	}
	if !actor.CanManage(in.FranchiseID) {
		return models.User{}, apperr.ErrForbidden
	}
	if _, err := s.store.Franchises().GetByID(ctx, in.FranchiseID); err != nil {
		return models.User{}, err
	}
	u, err := s.create(ctx, actor.UserID, in)
	if err != nil {
		return models.User{}, err
	}
	if u.Role == models.RoleTrainer {
		s.cache.Invalidate(ctx, trainersKey(in.FranchiseID))
	}
	return u, nil
}

func (s *UserService) create(ctx context.Context, actorID string, in MemberInput) (models.User, error) {
	if len(in.Password) < auth.MinPasswordLen {
		return models.User{}, apperr.Validation("password too short")
	}
	fid := in.FranchiseID
	u := models.User{FranchiseID: &fid, Email: in.Email, FullName: in.FullName, Role: in.Role}
	if err := u.Validate(); err != nil {
		return models.User{}, apperr.Validation(err.Error())
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, apperr.Internal("hash password", err)
	}
	u.PasswordHash = hash

	var out models.User
	err = s.store.WithTx(ctx, func(tx repo.Store) error {
		var err error
		if out, err = tx.Users().Create(ctx, u); err != nil {
			if errors.Is(err, apperr.ErrDuplicate) {
				return apperr.Conflict("email_taken", "email already registered")
			}
			return err
		}
		if actorID == "" {
			actorID = out.ID
		}
		return audit(ctx, tx, "user", out.ID, actorID, "created", map[string]any{"role": out.Role, "franchise_id": fid})
	})
	return out, err
}

func (s *UserService) Login(ctx context.Context, email, password string) (models.User, auth.TokenPair, error) {
	u, err := s.store.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperr.ErrNotFound) {
		return models.User{}, auth.TokenPair{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, auth.TokenPair{}, err
	}
	if auth.VerifyPassword(password, u.PasswordHash) != nil {
		return models.User{}, auth.TokenPair{}, apperr.ErrInvalidCredentials
	}
	if err := s.checkActive(ctx, u); err != nil {
		return models.User{}, auth.TokenPair{}, err
	}
	pair, err := s.tokens.GeneratePair(actorOf(u))
	if err != nil {
		return models.User{}, auth.TokenPair{}, apperr.Internal("token generation failed", err)
	}
	return u, pair, nil
}

// Refresh issues a new pair from a refresh token, re-reading the user so
// deleted accounts and role changes take effect.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return auth.TokenPair{}, apperr.ErrUnauthorized
	}
	u, err := s.store.Users().GetByID(ctx, claims.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return auth.TokenPair{}, apperr.ErrUnauthorized
	}
	if err != nil {
		return auth.TokenPair{}, err
	}
	if err := s.checkActive(ctx, u); err != nil {
		return auth.TokenPair{}, err
	}
	pair, err := s.tokens.GeneratePair(actorOf(u))
	if err != nil {
		return auth.TokenPair{}, apperr.Internal("token generation failed", err)
	}
	return pair, nil
}

func (s *UserService) checkActive(ctx context.Context, u models.User) error {
	if u.FranchiseID == nil {
		return nil
	}
	f, err := s.store.Franchises().GetByID(ctx, *u.FranchiseID)
	if err != nil {
		return err
	}
	if !f.Active {
		return apperr.Forbidden("franchise is inactive")
	}
	return nil
}

func (s *UserService) Me(ctx context.Context, actor models.Actor) (models.User, error) {
	return s.store.Users().GetByID(ctx, actor.UserID)
}

func (s *UserService) Get(ctx context.Context, actor models.Actor, id string) (models.User, error) {
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if !canSeeUser(actor, u) {
		return models.User{}, apperr.ErrNotFound
	}
	return u, nil
}

func canSeeUser(a models.Actor, u models.User) bool {
	if a.IsAdmin() || a.UserID == u.ID {
		return true
	}
	if u.FranchiseID == nil || *u.FranchiseID != a.FranchiseID {
		return false
	}
	switch a.Role {
	case models.RoleOwner, models.RoleTrainer:
		return true
	default:
		return u.Role == models.RoleTrainer
	}
}

func (s *UserService) List(ctx context.Context, actor models.Actor, franchiseID string, role models.Role, limit, offset int) ([]models.User, error) {
	if !actor.IsAdmin() {
		franchiseID = actor.FranchiseID
	}
	if actor.Role == models.RoleClient {
		return nil, apperr.ErrForbidden
	}
	if role != "" && !role.Valid() {
		return nil, apperr.Validation("unknown role")
	}
	limit, offset = clampPage(limit, offset)
	return s.store.Users().List(ctx, franchiseID, role, limit, offset)
}

func (s *UserService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if actor.UserID == id {
		return apperr.Validation("cannot delete yourself")
	}
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.FranchiseID == nil {
		if !actor.IsAdmin() {
			return apperr.ErrNotFound
		}
		return apperr.Forbidden("admins cannot be deleted through the API")
	}
	fid := *u.FranchiseID
	if !actor.InFranchise(fid) {
		return apperr.ErrNotFound
	}
	if !actor.CanManage(fid) {
		return apperr.ErrForbidden
	}
	err = s.store.WithTx(ctx, func(tx repo.Store) error {
		if err := tx.Users().Delete(ctx, id); err != nil {
			return err
		}
		return audit(ctx, tx, "user", id, actor.UserID, "deleted", map[string]any{"role": u.Role})
	})
	if err != nil {
		return err
	}
	if u.Role == models.RoleTrainer {
		s.cache.Invalidate(ctx, trainersKey(fid))
	}
	return nil
}

// ListTrainers returns the actor's franchise trainers from the cache when possible.
func (s *UserService) ListTrainers(ctx context.Context, actor models.Actor, franchiseID string) ([]models.User, error) {
	if !actor.IsAdmin() || franchiseID == "" {
		franchiseID = actor.FranchiseID
	}
	if franchiseID == "" {
		return nil, apperr.Validation("franchise_id is required")
	}
	return cache.GetOrLoad(ctx, s.cache, trainersKey(franchiseID), func(ctx context.Context) ([]models.User, error) {
		return s.store.Users().List(ctx, franchiseID, models.RoleTrainer, maxLimit, 0)
	})
}

func actorOf(u models.User) models.Actor {
	a := models.Actor{UserID: u.ID, Role: u.Role}
	if u.FranchiseID != nil {
		a.FranchiseID = *u.FranchiseID
	}
	return a
}
