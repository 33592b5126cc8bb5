package mongo

import (
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"spacebook/internal/pkg/errs"
)

// ErrConcurrentUpdate reports a lost optimistic update or a transaction write
// conflict. The command pipeline retries it.
var ErrConcurrentUpdate = errs.Mark(
	errs.Mark(errs.New("mongo: concurrent update detected"), errs.ErrConcurrentUpdate),
	errs.ErrRetryable,
)

const (
	writeConflictCode = 112

	// bookingCodeIndex is the server's default name for the unique
	// booking_code index created by EnsureIndexes.
	bookingCodeIndex = "booking_code_1"
)

// duplicateOnIndex reports whether err is a duplicate key error raised by the
// named index rather than by _id or another unique index.
func duplicateOnIndex(err error, index string) bool {
	return mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), "index: "+index+" ")
}

// translate maps driver errors onto the domain taxonomy. notFound is returned
// for ErrNoDocuments.
func translate(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errs.Is(err, mongo.ErrNoDocuments) && notFound != nil {
		return notFound
	}
	if transient(err) {
		return errs.Mark(errs.Mark(errs.Wrap(err, "mongo: transient failure"), errs.ErrConcurrentUpdate), errs.ErrRetryable)
	}
	return errs.Wrap(err, "mongo")
}

func transient(err error) bool {
	var labeled mongo.LabeledError
	if errs.As(err, &labeled) {
		if labeled.HasErrorLabel("TransientTransactionError") || labeled.HasErrorLabel("UnknownTransactionCommitResult") {
			return true
		}
	}
	var cmdErr mongo.CommandError
	if errs.As(err, &cmdErr) && cmdErr.Code == writeConflictCode {
		return true
	}
	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}
