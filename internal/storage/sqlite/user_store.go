package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cimillas/item-reservations/internal/domain"
)

type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(ctx context.Context, user domain.User) error {
	const stmt = `
INSERT INTO users (id, name, email, password_hash, role, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.exec(ctx, stmt, user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role), toNanos(user.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *UserStore) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.getUser(ctx, `WHERE id = ?`, id)
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.getUser(ctx, `WHERE email = ?`, email)
}

func (s *UserStore) getUser(ctx context.Context, where, arg string) (domain.User, error) {
	var (
		u         domain.User
		role      string
		createdAt int64
	)
	err := s.db.queryRow(ctx, `SELECT id, name, email, password_hash, role, created_at FROM users `+where, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	u.Role = domain.Role(role)
	u.CreatedAt = fromNanos(createdAt)
	return u, nil
}
