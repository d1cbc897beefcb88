package memory

import (
	"context"

	"deskhub/internal/app/uow"
	domainoffices "deskhub/internal/domain/offices"
	domainreservations "deskhub/internal/domain/reservations"
	domaintags "deskhub/internal/domain/tags"
	domainusers "deskhub/internal/domain/users"
)

// Factory hands out units of work over the shared in-memory repositories.
// Commit and Rollback are no-ops; isolation comes from the handlers checking
// every guard before the first mutation.
type Factory struct {
	OfficesRepo      domainoffices.Repository
	ReservationsRepo domainreservations.Repository
	TagsRepo         domaintags.Repository
	UsersRepo        domainusers.Repository
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	return Unit{
		offices:      f.OfficesRepo,
		reservations: f.ReservationsRepo,
		tags:         f.TagsRepo,
		users:        f.UsersRepo,
	}, nil
}

type Unit struct {
	offices      domainoffices.Repository
	reservations domainreservations.Repository
	tags         domaintags.Repository
	users        domainusers.Repository
}

func (u Unit) Offices() domainoffices.Repository           { return u.offices }
func (u Unit) Reservations() domainreservations.Repository { return u.reservations }
func (u Unit) Tags() domaintags.Repository                 { return u.tags }
func (u Unit) Users() domainusers.Repository               { return u.users }

func (u Unit) Commit(ctx context.Context) error   { return nil }
func (u Unit) Rollback(ctx context.Context) error { return nil }

var _ uow.Factory = Factory{}
var _ uow.UnitOfWork = Unit{}
