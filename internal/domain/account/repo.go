package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("account: user not found")
	ErrEmailTaken = errors.New("account: email already registered")
)

type Repository interface {
	// InTx runs fn inside a single transaction; every repository call made
	// with the context fn receives joins that transaction.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	SetLastLogin(ctx context.Context, id uuid.UUID) error
}
