package reservation

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	bookingCodePrefix = "SB-"
	codeAlphabet      = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeSuffixLen     = 4
)

// NewBookingCode returns a human readable code such as SB-LZ0K3Q1C-7F2A. The
// time part makes codes monotonic; the random suffix separates codes issued in
// the same millisecond. Collisions surface as ErrDuplicateBookingCode.
func NewBookingCode(now time.Time) string {
	var b strings.Builder
	b.WriteString(bookingCodePrefix)
	b.WriteString(strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)))
	b.WriteByte('-')
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeSuffixLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			b.WriteByte(codeAlphabet[now.Nanosecond()%len(codeAlphabet)])
			continue
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String()
}
