package identifier

import (
	"fmt"
	"io"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/agritrace/agritrace/internal/adapter"
	"github.com/agritrace/agritrace/internal/logger"
)

const (
	// TracePrefix prefixes every trace identifier
	TracePrefix = "TR"
	// BatchPrefix prefixes every batch identifier
	BatchPrefix = "BT"
)

// Generator produces globally unique, human-typeable trace and batch
// identifiers. IDs are a two-letter prefix followed by a Crockford base32
// ULID, so they can be typed or scanned by downstream actors.
//
// Generated IDs are unique with overwhelming probability, but callers must
// still verify uniqueness against the authoritative store before commit;
// the registry regenerates on collision up to a bounded number of attempts.
type Generator interface {
	NewTraceID() string
	NewBatchID() string
}

type ulidGenerator struct {
	clock   adapter.Clock
	entropy io.Reader
}

// NewGenerator creates a ULID-backed identifier generator
func NewGenerator(clock adapter.Clock) Generator {
	return &ulidGenerator{
		clock:   clock,
		entropy: ulid.DefaultEntropy(),
	}
}

func (g *ulidGenerator) NewTraceID() string {
	return g.generate(TracePrefix)
}

func (g *ulidGenerator) NewBatchID() string {
	return g.generate(BatchPrefix)
}

// generate returns prefix+ULID, falling back to prefix+unix-millis when the
// entropy source fails. Fallback IDs are advisory only: they weaken the
// uniqueness guarantee under concurrent use, and the store-side uniqueness
// check before commit is what catches a clash.
func (g *ulidGenerator) generate(prefix string) string {
	now := g.clock.Now()
	id, err := ulid.New(ulid.Timestamp(now), g.entropy)
	if err != nil {
		logger.Warn("ULID generation failed, using timestamp fallback",
			zap.String("prefix", prefix),
			zap.Error(err),
		)
		return fmt.Sprintf("%s%d", prefix, now.UnixMilli())
	}
	return prefix + id.String()
}
