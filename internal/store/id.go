package store

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ulidEntropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	ulidEntropyMu sync.Mutex
)

func NewID() string {
	ulidEntropyMu.Lock()
	defer ulidEntropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// NewSessionToken returns a token in the wire format sessions are
// issued with.
func NewSessionToken() string { return "sess_" + NewID() }

// NewRoundID returns the identifier for a single spin round.
func NewRoundID() string { return "rnd_" + NewID() }
