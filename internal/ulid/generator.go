package ulid

import (
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy     io.Reader
	entropyOnce sync.Once

	mu        sync.RWMutex
	generator = DefaultGenerator
)

// DefaultEntropy returns a monotonic reader safe for concurrent use.
func DefaultEntropy() io.Reader {
	entropyOnce.Do(func() {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))

		entropy = &ulid.LockedMonotonicReader{
			MonotonicReader: ulid.Monotonic(rng, 0),
		}
	})
	return entropy
}

// ValidID reports whether id is a canonical ULID string.
func ValidID(id string) bool {
	parsed, err := ulid.ParseStrict(id)
	return err == nil && parsed.String() == id
}

// Time returns the creation time encoded in id.
func Time(id string) (time.Time, bool) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(parsed.Time()), true
}

// GenerateID returns a new document id. Ids sort by creation time.
func GenerateID() string {
	mu.RLock()
	defer mu.RUnlock()
	return generator()
}

func DefaultGenerator() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), DefaultEntropy()).String()
}

func ResetGenerator() {
	mu.Lock()
	generator = DefaultGenerator
	mu.Unlock()
}

// MockGenerator makes GenerateID return ids from values in order, repeating
// the last one.
func MockGenerator(values ...string) {
	var (
		i    int
		lock sync.Mutex
	)
	mu.Lock()
	defer mu.Unlock()
	generator = func() string {
		lock.Lock()
		defer lock.Unlock()
		v := values[min(i, len(values)-1)]
		i++
		return v
	}
}
