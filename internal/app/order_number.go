package app

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultBrandCode prefixes every generated order number.
const DefaultBrandCode = "UCS"

const (
	suffixLen      = 9
	suffixAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// OrderNumbers generates order numbers of the form
// <brand>-<unix millis>-<9 uppercase base36 chars>. The millisecond part is
// strictly increasing across calls on the same generator, so two numbers from
// one process never collide even when the random suffix does.
type OrderNumbers struct {
	mu    sync.Mutex
	brand string
	now   func() time.Time
	last  int64
}

// NewOrderNumbers returns a generator for brand. An empty brand uses
// DefaultBrandCode.
func NewOrderNumbers(brand string) *OrderNumbers {
	brand = strings.ToUpper(strings.TrimSpace(brand))
	if brand == "" {
		brand = DefaultBrandCode
	}
	return &OrderNumbers{brand: brand, now: time.Now}
}

// Next returns a fresh order number.
func (g *OrderNumbers) Next() string {
	g.mu.Lock()
	ts := g.now().UnixMilli()
	if ts <= g.last {
		ts = g.last + 1
	}
	g.last = ts
	g.mu.Unlock()

	return g.brand + "-" + strconv.FormatInt(ts, 10) + "-" + randomSuffix()
}

func randomSuffix() string {
	var sb strings.Builder
	sb.Grow(suffixLen)
	base := big.NewInt(int64(len(suffixAlphabet)))
	for i := 0; i < suffixLen; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		sb.WriteByte(suffixAlphabet[n.Int64()])
	}
	return sb.String()
}
