package app

import (
	"fmt"
	"log/slog"

	"reviewbase/internal/util"
	"reviewbase/pkg/domain"
)

// UserInput is the payload for admin-created accounts.
type UserInput struct {
	Username  string
	Email     string
	Role      domain.UserRole
	FirstName string
	LastName  string
	Bio       string
}

// UserPatch carries partial updates; nil fields are left untouched.
type UserPatch struct {
	Username  *string
	Email     *string
	Role      *domain.UserRole
	FirstName *string
	LastName  *string
	Bio       *string
}

func validRole(role domain.UserRole) bool {
	switch role {
	case domain.RoleUser, domain.RoleModerator, domain.RoleAdmin:
		return true
	default:
		return false
	}
}

// CreateUser adds an account through the admin directory. Accounts created
// this way are active immediately; the signup flow is not required.
func (a *App) CreateUser(caller domain.User, in UserInput) (domain.User, error) {
	if !Allowed(KindUserDirectory, OpCreate, caller.Role, false) {
		return domain.User{}, ErrForbidden
	}
	if err := domain.ValidateUsername(in.Username); err != nil {
		return domain.User{}, invalidField("username", err.Error())
	}
	email, err := domain.NormalizeEmail(in.Email)
	if err != nil {
		return domain.User{}, invalidField("email", err.Error())
	}
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !validRole(role) {
		return domain.User{}, invalidField("role", "unknown role")
	}
	if taken, err := a.store.HasUserUsername(in.Username); err != nil {
		return domain.User{}, fmt.Errorf("look up username: %w", err)
	} else if taken {
		return domain.User{}, invalidField("username", "username is already in use")
	}
	if taken, err := a.store.HasUserEmail(email); err != nil {
		return domain.User{}, fmt.Errorf("look up email: %w", err)
	} else if taken {
		return domain.User{}, invalidField("email", "email is already in use")
	}
	now := a.now()
	user := domain.User{
		ID:        util.NewID(),
		Username:  in.Username,
		Email:     email,
		Role:      role,
		Status:    domain.StatusActive,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Bio:       in.Bio,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	slog.Info("user created by admin",
		"event", "security_event",
		"admin", caller.Username,
		"username", user.Username,
		"role", string(user.Role),
	)
	return user, nil
}

// ListUsers returns accounts matching an optional username search.
func (a *App) ListUsers(caller domain.User, search string) ([]domain.User, error) {
	if !Allowed(KindUserDirectory, OpList, caller.Role, false) {
		return nil, ErrForbidden
	}
	return a.store.ListUsers(search)
}

// GetUser looks up one account by username.
func (a *App) GetUser(caller domain.User, username string) (domain.User, error) {
	if !Allowed(KindUserDirectory, OpRetrieve, caller.Role, false) {
		return domain.User{}, ErrForbidden
	}
	user, found, err := a.store.GetUserByUsername(username)
	if err != nil {
		return domain.User{}, fmt.Errorf("look up user: %w", err)
	}
	if !found {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

// UpdateUser applies a partial update to an account in the directory.
func (a *App) UpdateUser(caller domain.User, username string, patch UserPatch) (domain.User, error) {
	if !Allowed(KindUserDirectory, OpUpdate, caller.Role, false) {
		return domain.User{}, ErrForbidden
	}
	user, found, err := a.store.GetUserByUsername(username)
	if err != nil {
		return domain.User{}, fmt.Errorf("look up user: %w", err)
	}
	if !found {
		return domain.User{}, ErrNotFound
	}
	updated, err := a.applyUserPatch(user, patch)
	if err != nil {
		return domain.User{}, err
	}
	if patch.Role != nil && *patch.Role != user.Role {
		slog.Info("user role changed",
			"event", "security_event",
			"admin", caller.Username,
			"username", user.Username,
			"role", string(*patch.Role),
		)
	}
	return updated, nil
}

// DeleteUser removes an account from the directory.
func (a *App) DeleteUser(caller domain.User, username string) error {
	if !Allowed(KindUserDirectory, OpDelete, caller.Role, false) {
		return ErrForbidden
	}
	user, found, err := a.store.GetUserByUsername(username)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if !found {
		return ErrNotFound
	}
	if err := a.store.DeleteUser(user.ID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	slog.Info("user deleted",
		"event", "security_event",
		"admin", caller.Username,
		"username", user.Username,
	)
	return nil
}

// UpdateProfile lets any authenticated user edit their own account. Role is
// the exception: a non-admin asking to change their own role is refused and
// nothing is written.
func (a *App) UpdateProfile(caller domain.User, patch UserPatch) (domain.User, error) {
	if patch.Role != nil && *patch.Role != caller.Role && caller.Role != domain.RoleAdmin {
		return domain.User{}, ErrSelfRoleChange
	}
	return a.applyUserPatch(caller, patch)
}

func (a *App) applyUserPatch(user domain.User, patch UserPatch) (domain.User, error) {
	if patch.Username != nil && *patch.Username != user.Username {
		if err := domain.ValidateUsername(*patch.Username); err != nil {
			return domain.User{}, invalidField("username", err.Error())
		}
		if taken, err := a.store.HasUserUsername(*patch.Username); err != nil {
			return domain.User{}, fmt.Errorf("look up username: %w", err)
		} else if taken {
			return domain.User{}, invalidField("username", "username is already in use")
		}
		user.Username = *patch.Username
	}
	if patch.Email != nil {
		email, err := domain.NormalizeEmail(*patch.Email)
		if err != nil {
			return domain.User{}, invalidField("email", err.Error())
		}
		if email != user.Email {
			if taken, err := a.store.HasUserEmail(email); err != nil {
				return domain.User{}, fmt.Errorf("look up email: %w", err)
			} else if taken {
				return domain.User{}, invalidField("email", "email is already in use")
			}
			user.Email = email
		}
	}
	if patch.Role != nil {
		if !validRole(*patch.Role) {
			return domain.User{}, invalidField("role", "unknown role")
		}
		user.Role = *patch.Role
	}
	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.Bio != nil {
		user.Bio = *patch.Bio
	}
	user.UpdatedAt = a.now()
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}
