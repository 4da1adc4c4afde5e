package identity

import (
	"strconv"
	"strings"
	"sync"
)

const DefaultPrefix = "block-"

// Generator hands out block ids of the form "<prefix><n>". The counter only
// grows; ids already present in a document are skipped, and Observe moves
// the counter past numbered ids loaded from elsewhere.
type Generator struct {
	prefix string

	mu      sync.Mutex
	counter int
}

func NewGenerator(prefix string) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Generator{prefix: prefix}
}

// Observe advances the counter past every id in ids that carries the
// generator's prefix followed by a number.
func (g *Generator) Observe(ids []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range ids {
		if n, ok := g.number(id); ok && n > g.counter {
			g.counter = n
		}
	}
}

// Next returns an id that does not occur in existing.
func (g *Generator) Next(existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		taken[id] = struct{}{}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		g.counter++
		id := g.prefix + strconv.Itoa(g.counter)
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}

func (g *Generator) number(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, g.prefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
