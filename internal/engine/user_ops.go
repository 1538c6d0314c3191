package engine

import (
	"github.com/omnifs/omnifs/internal/container"
	"github.com/omnifs/omnifs/internal/session"
	"github.com/omnifs/omnifs/internal/users"
	omnierrors "github.com/omnifs/omnifs/pkg/errors"
)

// UserSummary is the wire-friendly rendering of one user-table entry.
// IsActive is rendered as 0/1, matching the original's int-typed field.
type UserSummary struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	IsActive int    `json:"is_active"`
}

func userSummary(u *users.Info) UserSummary {
	isActive := 0
	if u.IsActive {
		isActive = 1
	}
	return UserSummary{Username: u.Username, Role: u.Role.String(), IsActive: isActive}
}

// UserCreate inserts a new active user. Fails FileExists if the name is
// already indexed.
func (e *Engine) UserCreate(name, pass string, role container.Role) *omnierrors.OmniError {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.users.Find(name); ok {
		return omnierrors.New(omnierrors.FileExists, "username already exists").WithComponent("engine").WithOperation("user_create")
	}

	e.users.Insert(&users.Info{
		Username:     name,
		PasswordHash: pass,
		Role:         role,
		IsActive:     true,
	})

	return e.save()
}

// UserDelete removes a user by name. Fails NotFound if absent.
func (e *Engine) UserDelete(name string) *omnierrors.OmniError {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.users.Find(name); !ok {
		return omnierrors.New(omnierrors.NotFound, "user not found").WithComponent("engine").WithOperation("user_delete")
	}

	e.users.Remove(name)
	return e.save()
}

// UserList returns every user in ascending username order.
func (e *Engine) UserList() []UserSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	list := e.users.List()
	out := make([]UserSummary, 0, len(list))
	for _, u := range list {
		out = append(out, userSummary(u))
	}
	return out
}

// UserLogin authenticates name/pass and, on success, creates a session.
func (e *Engine) UserLogin(name, pass string) (session.Info, *omnierrors.OmniError) {
	e.mu.Lock()
	u, ok := e.users.Find(name)
	e.mu.Unlock()

	if !ok {
		return session.Info{}, omnierrors.New(omnierrors.NotFound, "user not found").WithComponent("engine").WithOperation("user_login")
	}
	if u.PasswordHash != pass {
		return session.Info{}, omnierrors.New(omnierrors.PermissionDenied, "password mismatch").WithComponent("engine").WithOperation("user_login")
	}

	info, err := e.Sessions.Create(*u)
	if err != nil {
		return session.Info{}, omnierrors.New(omnierrors.IOError, err.Error()).WithComponent("engine").WithOperation("user_login")
	}
	return info, nil
}

// UserLogout ends a session. Fails InvalidSession if unknown.
func (e *Engine) UserLogout(sessionID string) *omnierrors.OmniError {
	if !e.Sessions.Remove(sessionID) {
		return omnierrors.New(omnierrors.InvalidSession, "session not found").WithComponent("engine").WithOperation("user_logout")
	}
	return nil
}

// SessionInfo returns the snapshot bound to a session id, for the
// get_session_info diagnostic extension (not gated by the authentication
// check itself, since it IS the lookup the gate performs).
func (e *Engine) SessionInfo(sessionID string) (session.Info, *omnierrors.OmniError) {
	info, ok := e.Sessions.Find(sessionID)
	if !ok {
		return session.Info{}, omnierrors.New(omnierrors.InvalidSession, "session not found").WithComponent("engine").WithOperation("get_session_info")
	}
	return info, nil
}
