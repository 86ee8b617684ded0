package statement

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Reference prefixes by origin.
const (
	PrefixWallet      = "OPAY"
	PrefixTraditional = "BANK"
	PrefixImport      = "TXN"
	PrefixManual      = "MANUAL"
)

// RefGenerator builds synthetic transaction references of the form
// PREFIX-<unix millis>-<seq>-<random>. The sequence keeps references
// generated in the same millisecond distinct.
type RefGenerator struct {
	prefix string
	now    func() time.Time
	seq    atomic.Uint64
}

// NewRefGenerator returns a generator for the given prefix.
func NewRefGenerator(prefix string) *RefGenerator {
	return &RefGenerator{prefix: prefix, now: time.Now}
}

// Next returns a new reference.
func (g *RefGenerator) Next() string {
	n := g.seq.Add(1)
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%d-%04d-%s", g.prefix, g.now().UnixMilli(), n, suffix)
}
