package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"

	"spacebook/internal/pkg/errs"
)

func duplicateKey(msg string) error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: msg}}}
}

func TestDuplicateOnIndex(t *testing.T) {
	code := duplicateKey(`E11000 duplicate key error collection: spacebook.reservations index: booking_code_1 dup key: { booking_code: "SB-X" }`)
	id := duplicateKey(`E11000 duplicate key error collection: spacebook.reservations index: _id_ dup key: { _id: "res-1" }`)

	assert.True(t, duplicateOnIndex(code, bookingCodeIndex))
	assert.False(t, duplicateOnIndex(id, bookingCodeIndex), "an _id clash is not a booking code collision")
	assert.False(t, duplicateOnIndex(errs.New("index: booking_code_1 "), bookingCodeIndex), "only duplicate key errors count")
}

func TestTranslate(t *testing.T) {
	notFound := errs.New("missing")
	assert.Equal(t, notFound, translate(mongo.ErrNoDocuments, notFound))
	assert.NoError(t, translate(nil, notFound))

	conflict := translate(mongo.CommandError{Code: writeConflictCode, Message: "WriteConflict"}, nil)
	assert.True(t, errs.Is(conflict, errs.ErrRetryable))
	assert.True(t, errs.Is(conflict, errs.ErrConcurrentUpdate))

	assert.False(t, errs.Is(translate(errs.New("boom"), nil), errs.ErrRetryable))
}
