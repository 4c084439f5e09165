package services

import (
	"context"
	"fmt"

	"github.com/baharkarakas/franchise-backend/internal/models"
	repo "github.com/baharkarakas/franchise-backend/internal/repository"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

func audit(ctx context.Context, st repo.Store, entityType, entityID, actorID, action string, details map[string]any) error {
	l := models.AuditLog{EntityType: entityType, Action: action, Details: details}
	if entityID != "" {
		l.EntityID = &entityID
	}
	if actorID != "" {
		l.ActorID = &actorID
	}
	if err := st.AuditLogs().Create(ctx, l); err != nil {
		return fmt.Errorf("audit %s %s: %w", entityType, action, err)
	}
	return nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
