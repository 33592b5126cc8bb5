package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"spacebook/internal/app/uow"
	"spacebook/internal/domain/payment"
	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/space"
	domainuser "spacebook/internal/domain/user"
	"spacebook/internal/pkg/errs"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database
}

var ErrUnitOfWorkNotConfigured = errs.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction. Repositories join it through the
// session context returned by InjectContext.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, translate(err, nil)
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if opts.ReadOnly {
		txnOpts = txnOpts.SetReadConcern(readconcern.Majority())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, translate(err, nil)
	}
	return &Unit{
		session:      session,
		spaces:       NewSpaceRepository(f.DB),
		reservations: NewReservationRepository(f.DB),
		payments:     NewPaymentRepository(f.DB),
		users:        NewUserRepository(f.DB),
		inbox:        NewInbox(f.DB),
	}, nil
}

type Unit struct {
	session mongo.Session

	spaces       *SpaceRepository
	reservations *ReservationRepository
	payments     *PaymentRepository
	users        *UserRepository
	inbox        *Inbox
}

func (u *Unit) Spaces() space.Repository             { return u.spaces }
func (u *Unit) Reservations() reservation.Repository { return u.reservations }
func (u *Unit) Payments() payment.Repository         { return u.payments }
func (u *Unit) Users() domainuser.Repository         { return u.users }
func (u *Unit) Inbox() uow.Inbox                     { return u.inbox }

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return translate(u.session.CommitTransaction(ctx), nil)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var _ uow.UoWFactory = Factory{}
