package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/franchise-backend/internal/api/httpx"
	"github.com/baharkarakas/franchise-backend/internal/api/validate"
	"github.com/baharkarakas/franchise-backend/internal/apperr"
	"github.com/baharkarakas/franchise-backend/internal/middleware"
	"github.com/baharkarakas/franchise-backend/internal/models"
)

func actor(r *http.Request) models.Actor {
	a, _ := middleware.ActorFrom(r.Context())
	return a
}

// bind decodes the JSON body into dst and validates it.
func bind(r *http.Request, dst any) error {
	if err := httpx.Decode(r, dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

func param(r *http.Request, name string) string { return chi.URLParam(r, name) }

func queryTime(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, apperr.Validation(name + " must be an RFC3339 timestamp")
	}
	return &t, nil
}

type listResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset"`
}

func writeList[T any](w http.ResponseWriter, items []T, limit, offset int) {
	if items == nil {
		items = []T{}
	}
	httpx.WriteJSON(w, http.StatusOK, listResponse[T]{Items: items, Limit: limit, Offset: offset})
}
