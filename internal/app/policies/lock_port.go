package policies

//go:generate mockgen -source=lock_port.go -destination=mocks/lock_mock.go -package=mocks

import "context"

// SpaceLocker serializes writers of one space across the check-and-insert of
// reservation creation. The returned release func must always be called.
type SpaceLocker interface {
	Lock(ctx context.Context, spaceID string) (release func(), err error)
}
