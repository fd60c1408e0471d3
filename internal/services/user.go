package services

import (
	"context"
	"errors"
	"strings"

	"github.com/accountd/apiserver/internal/events"
	"github.com/accountd/apiserver/internal/store"
	"github.com/accountd/apiserver/types"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the work factor the account database was created with.
const bcryptCost = 12

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// ErrInvalidCredentials is returned when login fails, without revealing
// whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	EmailTaken(ctx context.Context, email string, excludeID uuid.UUID) (bool, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// UserUpdate carries the optional fields of a partial update. Nil fields are
// left untouched.
type UserUpdate struct {
	Name     *string
	Email    *string
	Role     *string
	IsActive *bool
}

// PageInfo summarizes a page of the active user listing.
type PageInfo struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalUsers  int  `json:"totalUsers"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo   UserRepository
	events *events.Publisher
}

// NewUserService constructs a UserService. publisher may be nil when
// lifecycle events are disabled.
func NewUserService(repo UserRepository, publisher *events.Publisher) *UserService {
	return &UserService{repo: repo, events: publisher}
}

// Register creates an active account. The email must not be held by another
// active account; the check-then-write is not atomic, so a concurrent signup
// race can admit a duplicate.
func (s *UserService) Register(ctx context.Context, name, email, password, role string) (types.User, error) {
	if role == "" {
		role = types.RoleUser
	}

	taken, err := s.repo.EmailTaken(ctx, email, uuid.Nil)
	if err != nil {
		return types.User{}, err
	}
	if taken {
		return types.User{}, store.ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         role,
		IsActive:     true,
	})
	if err != nil {
		return types.User{}, err
	}

	s.events.UserCreated(ctx, user)
	return user, nil
}

// Authenticate resolves an account by email and verifies the password.
// The lookup does not filter on is_active, so a soft-deleted account can
// still authenticate.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if !s.ComparePassword(password, user.PasswordHash) {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a page of active users, newest first, plus a pagination
// summary. page starts at 1; limit defaults to 10 and is capped at 100.
func (s *UserService) List(ctx context.Context, page, limit int) ([]types.User, PageInfo, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	users, total, err := s.repo.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, PageInfo{}, err
	}

	totalPages := (total + limit - 1) / limit
	info := PageInfo{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalUsers:  total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
	return users, info, nil
}

// Update applies the non-nil fields of upd. An email change re-checks
// uniqueness against active accounts, excluding the record itself.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, upd UserUpdate) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if upd.Email != nil && *upd.Email != user.Email {
		taken, err := s.repo.EmailTaken(ctx, *upd.Email, id)
		if err != nil {
			return types.User{}, err
		}
		if taken {
			return types.User{}, store.ErrEmailTaken
		}
		user.Email = *upd.Email
	}
	if upd.Name != nil {
		user.Name = *upd.Name
	}
	if upd.Role != nil {
		user.Role = *upd.Role
	}
	if upd.IsActive != nil {
		user.IsActive = *upd.IsActive
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, err
	}

	s.events.UserUpdated(ctx, updated)
	return updated, nil
}

// SoftDelete deactivates the account. The record persists and is still
// reachable via GetByID.
func (s *UserService) SoftDelete(ctx context.Context, id uuid.UUID) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	user.IsActive = false
	s.events.UserDeactivated(ctx, user)
	return nil
}

// ChangePassword verifies the current password before storing a hash of the
// new one.
func (s *UserService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !s.ComparePassword(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hashed)
	_, err = s.repo.Update(ctx, user)
	return err
}

// ComparePassword reports whether plaintext matches the stored hash. The
// comparison is delegated to bcrypt, which is constant-time with respect to
// the match outcome.
func (s *UserService) ComparePassword(plaintext, hash string) bool {
	if strings.TrimSpace(hash) == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
