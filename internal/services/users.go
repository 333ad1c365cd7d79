package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/tgienger/taskboard/internal/auth"
	"github.com/tgienger/taskboard/internal/models"
	"github.com/tgienger/taskboard/internal/perrors"
	"github.com/tgienger/taskboard/internal/policy"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.@+-]{1,150}$`)

const minPasswordLen = 6

// UserInput is the data needed to create an account
type UserInput struct {
	Username  string      `json:"username"`
	Password  string      `json:"password"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      models.Role `json:"role"`
}

func (in *UserInput) validate() error {
	in.Username = strings.TrimSpace(in.Username)
	if !usernamePattern.MatchString(in.Username) {
		return perrors.NewErrValidation("username", "username must be 1-150 letters, digits or _.@+-")
	}
	if len(in.Password) < minPasswordLen {
		return perrors.NewErrValidation("password", "password must be at least 6 characters")
	}
	in.Email = strings.TrimSpace(in.Email)
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		return perrors.NewErrValidation("email", "email is not valid")
	}
	if in.Role == "" {
		in.Role = models.RoleMember
	}
	if !in.Role.Valid() {
		return perrors.NewErrValidation("role", "unknown role "+string(in.Role))
	}
	return nil
}

// Register creates a member account for an anonymous caller
func (s *Service) Register(ctx context.Context, in UserInput) (*models.User, error) {
	in.Role = models.RoleMember
	return s.createUser(ctx, in)
}

// CreateUser creates an account. Any role other than member needs an admin actor.
func (s *Service) CreateUser(ctx context.Context, actor *models.User, in UserInput) (*models.User, error) {
	if in.Role != "" && in.Role != models.RoleMember {
		if err := policy.Require(actor, policy.CanManageUsers); err != nil {
			return nil, err
		}
	}
	return s.createUser(ctx, in)
}

func (s *Service) createUser(ctx context.Context, in UserInput) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, perrors.NewErrInternal("hash password", err)
	}

	u, err := s.db.CreateUser(ctx, models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         in.Role,
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("user", u.Username).WithField("role", u.Role).Info("user created")
	return u, nil
}

// EnsureAdmin creates the first admin account when the store has no users yet
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	n, err := s.db.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	if _, err := s.createUser(ctx, UserInput{Username: username, Password: password, Role: models.RoleAdmin}); err != nil {
		return false, err
	}
	return true, nil
}

// Authenticate checks credentials. Unknown users and wrong passwords look the same.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.db.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if perrors.IsNotFound(err) {
			return nil, perrors.NewErrUnauthorized("invalid username or password")
		}
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, perrors.NewErrUnauthorized("invalid username or password")
	}
	return u, nil
}

// Login authenticates and issues a bearer token
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	if s.tokens == nil {
		return nil, "", perrors.NewErrInternal("token issuing is not configured", nil)
	}
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, "", err
	}
	tok, err := s.tokens.Issue(u)
	if err != nil {
		return nil, "", perrors.NewErrInternal("issue token", err)
	}
	return u, tok, nil
}

// UserFromToken resolves a bearer token to the stored user
func (s *Service) UserFromToken(ctx context.Context, token string) (*models.User, error) {
	if s.tokens == nil {
		return nil, perrors.NewErrUnauthorized("token auth is disabled")
	}
	id, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	u, err := s.db.GetUser(ctx, id)
	if perrors.IsNotFound(err) {
		return nil, perrors.NewErrUnauthorized("user no longer exists")
	}
	return u, err
}

// UserByName looks a user up by username
func (s *Service) UserByName(ctx context.Context, username string) (*models.User, error) {
	return s.db.GetUserByUsername(ctx, username)
}

// GetUser returns one user to any signed-in actor
func (s *Service) GetUser(ctx context.Context, actor *models.User, id int64) (*models.User, error) {
	if actor == nil {
		return nil, perrors.NewErrUnauthorized("authentication required")
	}
	return s.db.GetUser(ctx, id)
}

// ListUsers returns all users to any signed-in actor
func (s *Service) ListUsers(ctx context.Context, actor *models.User) ([]models.User, error) {
	if actor == nil {
		return nil, perrors.NewErrUnauthorized("authentication required")
	}
	return s.db.ListUsers(ctx)
}

// SetRole changes a user's role. Admins cannot demote themselves.
func (s *Service) SetRole(ctx context.Context, actor *models.User, id int64, role models.Role) (*models.User, error) {
	if err := policy.Require(actor, policy.CanManageUsers); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, perrors.NewErrValidation("role", "unknown role "+string(role))
	}
	if actor.ID == id && role != models.RoleAdmin {
		return nil, perrors.NewErrValidation("role", "you cannot remove your own admin role")
	}

	if err := s.db.UpdateUserRole(ctx, id, role); err != nil {
		return nil, err
	}
	s.log.WithField("user_id", id).WithField("role", role).Info("role changed")
	return s.db.GetUser(ctx, id)
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (s *Service) DeleteUser(ctx context.Context, actor *models.User, id int64) error {
	if err := policy.Require(actor, policy.CanManageUsers); err != nil {
		return err
	}
	if actor.ID == id {
		return perrors.NewErrValidation("id", "you cannot delete your own account")
	}
	return s.db.DeleteUser(ctx, id)
}
