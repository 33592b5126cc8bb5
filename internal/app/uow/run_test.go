package uow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacebook/internal/app/uow"
	"spacebook/internal/domain/payment"
	"spacebook/internal/domain/reservation"
	"spacebook/internal/domain/space"
	"spacebook/internal/domain/user"
)

type fakeUnit struct {
	commitErr  error
	committed  bool
	rolledBack bool
}

func (u *fakeUnit) Spaces() space.Repository             { return nil }
func (u *fakeUnit) Reservations() reservation.Repository { return nil }
func (u *fakeUnit) Payments() payment.Repository         { return nil }
func (u *fakeUnit) Users() user.Repository               { return nil }
func (u *fakeUnit) Inbox() uow.Inbox                     { return nil }

func (u *fakeUnit) Commit(context.Context) error {
	if u.commitErr != nil {
		return u.commitErr
	}
	u.committed = true
	return nil
}

func (u *fakeUnit) Rollback(context.Context) error {
	u.rolledBack = true
	return nil
}

type fakeFactory struct{ unit *fakeUnit }

func (f fakeFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	return f.unit, nil
}

func TestWithinCommitsAndRunsHooks(t *testing.T) {
	unit := &fakeUnit{}
	var fired []string
	err := uow.Within(context.Background(), fakeFactory{unit}, uow.TxOptions{}, func(ctx context.Context, u uow.UnitOfWork) error {
		got, ok := uow.FromContext(ctx)
		require.True(t, ok)
		assert.Same(t, unit, got)
		uow.AfterCommit(ctx, func(context.Context) { fired = append(fired, "notify") })
		assert.Empty(t, fired, "hooks wait for the commit")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, unit.committed)
	assert.False(t, unit.rolledBack)
	assert.Equal(t, []string{"notify"}, fired)
}

func TestWithinRollsBackOnFailure(t *testing.T) {
	boom := errors.New("boom")
	for name, unit := range map[string]*fakeUnit{
		"handler fails": {},
		"commit fails":  {commitErr: boom},
	} {
		t.Run(name, func(t *testing.T) {
			fired := false
			err := uow.Within(context.Background(), fakeFactory{unit}, uow.TxOptions{}, func(ctx context.Context, _ uow.UnitOfWork) error {
				uow.AfterCommit(ctx, func(context.Context) { fired = true })
				if unit.commitErr == nil {
					return boom
				}
				return nil
			})
			assert.ErrorIs(t, err, boom)
			assert.True(t, unit.rolledBack)
			assert.False(t, fired)
		})
	}
}

func TestWithinRequiresFactory(t *testing.T) {
	err := uow.Within(context.Background(), nil, uow.TxOptions{}, func(context.Context, uow.UnitOfWork) error { return nil })
	assert.ErrorIs(t, err, uow.ErrUnitOfWorkMissing)
}

func TestAfterCommitOutsideUnitRunsImmediately(t *testing.T) {
	ran := false
	uow.AfterCommit(context.Background(), func(context.Context) { ran = true })
	assert.True(t, ran)
}
