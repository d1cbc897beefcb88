package users

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("users: user not found")

type UserID string

type User struct {
	ID        UserID
	Name      string
	Email     string
	IsAdmin   bool
	CreatedAt time.Time
}

// Repository reads the user directory. This service never mutates users
// beyond seeding; identity issuance is owned by the auth service.
type Repository interface {
	ByID(ctx context.Context, id UserID) (*User, error)
	ByIDs(ctx context.Context, ids []UserID) (map[UserID]*User, error)
	Admins(ctx context.Context) ([]*User, error)
	Save(ctx context.Context, user *User) error
}
