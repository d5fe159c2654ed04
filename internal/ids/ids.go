package ids

import (
	cryptorand "crypto/rand"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	entropyMu sync.Mutex
)

// New returns a lexically sortable id, prefixed with "<prefix>_" when a
// prefix is given.
func New(prefix string) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
	entropyMu.Unlock()
	return withPrefix(prefix, id)
}

// NewUnguessable returns a ULID whose 80 random bits come straight from
// crypto/rand, for ids that act as bearer capabilities. Ids minted within
// the same millisecond are not ordered.
func NewUnguessable(prefix string) string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), cryptorand.Reader).String()
	return withPrefix(prefix, id)
}

func withPrefix(prefix, id string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// Valid reports whether id has the given prefix followed by a ULID.
func Valid(prefix, id string) bool {
	if prefix != "" {
		if !strings.HasPrefix(id, prefix+"_") {
			return false
		}
		id = strings.TrimPrefix(id, prefix+"_")
	}
	_, err := ulid.ParseStrict(id)
	return err == nil
}
