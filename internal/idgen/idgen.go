package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	lowerAlnum = "0123456789abcdefghijklmnopqrstuvwxyz"
	upperAlnum = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Generator produces order identifiers from a clock, tests swap Now
type Generator struct {
	Now func() time.Time
}

func New() *Generator {
	return &Generator{Now: time.Now}
}

// OrderID returns ORD_<unix-ms>_<9 base36 chars>
func (g *Generator) OrderID() string {
	return fmt.Sprintf("ORD_%d_%s", g.Now().UnixMilli(), randomString(lowerAlnum, 9))
}

// TrackingNumber returns TRK<unix-ms><5 uppercase alphanumerics>
func (g *Generator) TrackingNumber() string {
	return fmt.Sprintf("TRK%d%s", g.Now().UnixMilli(), randomString(upperAlnum, 5))
}

// EstimatedDelivery is four days from now in a human readable form
func (g *Generator) EstimatedDelivery() string {
	return g.Now().AddDate(0, 0, 4).Format("Monday, 2 January 2006")
}

// IdempotencyKey is distinct per create call even when the order id repeats
func (g *Generator) IdempotencyKey(orderID string) string {
	return fmt.Sprintf("%s_%d", orderID, g.Now().UnixMilli())
}

// RequestID tags outbound and inbound requests for log correlation
func RequestID() string {
	return uuid.NewString()
}

func randomString(alphabet string, n int) string {
	var sb strings.Builder
	sb.Grow(n)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			idx = big.NewInt(time.Now().UnixNano() % int64(len(alphabet)))
		}
		sb.WriteByte(alphabet[idx.Int64()])
	}
	return sb.String()
}
