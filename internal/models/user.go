package models

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleOwner   Role = "owner"
	RoleTrainer Role = "trainer"
	RoleClient  Role = "client"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleTrainer, RoleClient:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	FranchiseID  *string   `json:"franchise_id,omitempty"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) Validate() error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.FullName = strings.TrimSpace(u.FullName)
	if len(u.FullName) < 2 {
		return errors.New("full name too short")
	}
	if !strings.Contains(u.Email, "@") {
		return errors.New("invalid email")
	}
	if u.Role == "" {
		u.Role = RoleClient
	}
	if !u.Role.Valid() {
		return errors.New("invalid role")
	}
	if u.Role != RoleAdmin && (u.FranchiseID == nil || *u.FranchiseID == "") {
		return errors.New("franchise required")
	}
	return nil
}

// Actor is the authenticated caller a service operation runs on behalf of.
type Actor struct {
	UserID      string
	Role        Role
	FranchiseID string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanManage reports whether the actor may administer the given franchise.
func (a Actor) CanManage(franchiseID string) bool {
	if a.IsAdmin() {
		return true
	}
	return a.Role == RoleOwner && a.FranchiseID == franchiseID
}

// InFranchise reports whether the actor may see data of the given franchise.
func (a Actor) InFranchise(franchiseID string) bool {
	return a.IsAdmin() || a.FranchiseID == franchiseID
}
