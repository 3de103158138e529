package store

import (
	"context"
)

// User is the object representing an account.
type User struct {
	ID           int32
	Username     string
	PasswordHash string
	CreatedTs    int64
	LastLoginTs  int64
}

// FindUser is the find condition for user.
type FindUser struct {
	ID       *int32
	Username *string
}

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	return s.driver.CreateUser(ctx, create)
}

func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	return s.driver.GetUser(ctx, find)
}

func (s *Store) UpdateUserLastLogin(ctx context.Context, userID int32, lastLoginTs int64) error {
	return s.driver.UpdateUserLastLogin(ctx, userID, lastLoginTs)
}
