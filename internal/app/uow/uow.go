package uow

import (
	"context"

	domainoffices "deskhub/internal/domain/offices"
	domainreservations "deskhub/internal/domain/reservations"
	domaintags "deskhub/internal/domain/tags"
	domainusers "deskhub/internal/domain/users"
)

// UnitOfWork scopes repository access to one transaction. The office
// attribute write and its tag-association change commit or roll back as a
// single unit through it.
type UnitOfWork interface {
	Offices() domainoffices.Repository
	Reservations() domainreservations.Repository
	Tags() domaintags.Repository
	Users() domainusers.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Factory starts unit of work instances.
type Factory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}
