package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"deskhub/internal/app/uow"
	domainoffices "deskhub/internal/domain/offices"
	domainreservations "deskhub/internal/domain/reservations"
	domaintags "deskhub/internal/domain/tags"
	domainusers "deskhub/internal/domain/users"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	OfficesRepo      domainoffices.Repository
	ReservationsRepo domainreservations.Repository
	TagsRepo         domaintags.Repository
	UsersRepo        domainusers.Repository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:           f.DB,
		session:      session,
		offices:      f.OfficesRepo,
		reservations: f.ReservationsRepo,
		tags:         f.TagsRepo,
		users:        f.UsersRepo,
	}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session

	offices      domainoffices.Repository
	reservations domainreservations.Repository
	tags         domaintags.Repository
	users        domainusers.Repository
}

func (u *Unit) Offices() domainoffices.Repository { return u.offices }

func (u *Unit) Reservations() domainreservations.Repository { return u.reservations }

func (u *Unit) Tags() domaintags.Repository { return u.tags }

func (u *Unit) Users() domainusers.Repository { return u.users }

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures the Mongo session is available in context for
// downstream repositories.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
