package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/cache"
	"github.com/baharkarakas/franchise-backend/internal/models"
	repo "github.com/baharkarakas/franchise-backend/internal/repository"
)

var slugRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func slugKey(slug string) string { return "franchise:slug:" + slug }

type FranchiseService struct {
	store repo.Store
	cache *cache.Loader
}

func NewFranchiseService(st repo.Store, c *cache.Loader) *FranchiseService {
	return &FranchiseService{store: st, cache: c}
}

type FranchiseInput struct {
	Name     string
	Slug     string
	Timezone string
}

type FranchiseUpdate struct {
	Name     *string
	Timezone *string
}

func validTimezone(tz string) error {
	if _, err := time.LoadLocation(tz); err != nil {
		return apperr.Validation("unknown timezone " + tz)
	}
	return nil
}

func (s *FranchiseService) Create(ctx context.Context, actor models.Actor, in FranchiseInput) (models.Franchise, error) {
	if !actor.IsAdmin() {
		return models.Franchise{}, apperr.ErrForbidden
	}
	f := models.Franchise{
		Name:     strings.TrimSpace(in.Name),
		Slug:     strings.ToLower(strings.TrimSpace(in.Slug)),
		Timezone: strings.TrimSpace(in.Timezone),
		Active:   true,
	}
	if f.Timezone == "" {
		f.Timezone = "UTC"
	}
	if len(f.Name) < 2 {
		return models.Franchise{}, apperr.Validation("name too short")
	}
	if !slugRe.MatchString(f.Slug) {
		return models.Franchise{}, apperr.Validation("slug may contain lowercase letters, digits and dashes")
	}
	if err := validTimezone(f.Timezone); err != nil {
		return models.Franchise{}, err
	}

	var out models.Franchise
	err := s.store.WithTx(ctx, func(tx repo.Store) error {
		var err error
		if out, err = tx.Franchises().Create(ctx, f); err != nil {
			return err
		}
		return audit(ctx, tx, "franchise", out.ID, actor.UserID, "created", map[string]any{"slug": out.Slug})
	})
	return out, err
}

func (s *FranchiseService) List(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Franchise, error) {
	if !actor.IsAdmin() {
		return nil, apperr.ErrForbidden
	}
	limit, offset = clampPage(limit, offset)
	return s.store.Franchises().List(ctx, limit, offset)
}

func (s *FranchiseService) Get(ctx context.Context, actor models.Actor, id string) (models.Franchise, error) {
	if !actor.InFranchise(id) {
		return models.Franchise{}, apperr.ErrNotFound
	}
	return s.store.Franchises().GetByID(ctx, id)
}

// BySlug is the public lookup used during self sign-up.
func (s *FranchiseService) BySlug(ctx context.Context, slug string) (models.Franchise, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	return cache.GetOrLoad(ctx, s.cache, slugKey(slug), func(ctx context.Context) (models.Franchise, error) {
		return s.store.Franchises().GetBySlug(ctx, slug)
	})
}

func (s *FranchiseService) Update(ctx context.Context, actor models.Actor, id string, in FranchiseUpdate) (models.Franchise, error) {
	if !actor.InFranchise(id) {
		return models.Franchise{}, apperr.ErrNotFound
	}
	if !actor.CanManage(id) {
		return models.Franchise{}, apperr.ErrForbidden
	}
	return s.update(ctx, actor, id, "updated", func(f *models.Franchise) error {
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if len(name) < 2 {
				return apperr.Validation("name too short")
			}
			f.Name = name
		}
		if in.Timezone != nil {
			if err := validTimezone(*in.Timezone); err != nil {
				return err
			}
			f.Timezone = *in.Timezone
		}
		return nil
	})
}

func (s *FranchiseService) Deactivate(ctx context.Context, actor models.Actor, id string) (models.Franchise, error) {
	if !actor.IsAdmin() {
		return models.Franchise{}, apperr.ErrForbidden
	}
	return s.update(ctx, actor, id, "deactivated", func(f *models.Franchise) error {
		f.Active = false
		return nil
	})
}

func (s *FranchiseService) update(ctx context.Context, actor models.Actor, id, action string, mutate func(*models.Franchise) error) (models.Franchise, error) {
	var out models.Franchise
	err := s.store.WithTx(ctx, func(tx repo.Store) error {
		f, err := tx.Franchises().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := mutate(&f); err != nil {
			return err
		}
		if out, err = tx.Franchises().Update(ctx, f); err != nil {
			return err
		}
		return audit(ctx, tx, "franchise", id, actor.UserID, action, nil)
	})
	if err != nil {
		return models.Franchise{}, err
	}
	s.cache.Invalidate(ctx, slugKey(out.Slug))
	return out, nil
}
