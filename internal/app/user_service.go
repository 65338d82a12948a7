package app

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/cimillas/item-reservations/internal/clock"
	"github.com/cimillas/item-reservations/internal/domain"
)

const (
	minNameLength     = 3
	minPasswordLength = 6
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenIssuer interface {
	Issue(user domain.User) (token string, expiresAt time.Time, err error)
	Parse(token string) (domain.Identity, error)
}

type UserService struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenIssuer
	clock  clock.Clock
}

func NewUserService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, clk clock.Clock) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		clock:  clk,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates a MEMBER account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	return s.create(ctx, in, domain.RoleMember)
}

// CreateAdmin creates an ADMIN account. It is only reachable from the CLI.
func (s *UserService) CreateAdmin(ctx context.Context, in RegisterInput) (domain.User, error) {
	return s.create(ctx, in, domain.RoleAdmin)
}

func (s *UserService) create(ctx context.Context, in RegisterInput, role domain.Role) (domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := validateRegistration(in); err != nil {
		return domain.User{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           newID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

// Login checks credentials and issues a bearer token. Unknown emails and wrong
// passwords fail the same way.
func (s *UserService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		return Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return Session{}, domain.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate resolves a bearer token to the caller's identity.
func (s *UserService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	id, err := s.tokens.Parse(token)
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	// Tokens outlive accounts; make sure the subject still exists.
	if _, err := s.users.GetUser(ctx, id.UserID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Identity{}, domain.ErrUnauthenticated
		}
		return domain.Identity{}, err
	}
	return id, nil
}

func (s *UserService) Me(ctx context.Context, userID string) (domain.User, error) {
	if err := checkIDs(userID); err != nil {
		return domain.User{}, err
	}
	return s.users.GetUser(ctx, userID)
}

func validateRegistration(in RegisterInput) error {
	if err := validation.Validate(in.Name, validation.Required, validation.RuneLength(minNameLength, 0)); err != nil {
		return domain.ErrInvalidName
	}
	if err := validation.Validate(in.Email, validation.Required, is.EmailFormat); err != nil {
		return domain.ErrInvalidEmail
	}
	if err := validation.Validate(in.Password, validation.Required, validation.RuneLength(minPasswordLength, 0)); err != nil {
		return domain.ErrPasswordTooShort
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
