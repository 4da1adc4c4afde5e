package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerator_Next(t *testing.T) {
	g := NewGenerator("")

	assert.Equal(t, "block-1", g.Next(nil))
	assert.Equal(t, "block-2", g.Next(nil))
	assert.Equal(t, "block-5", g.Next([]string{"block-3", "block-4"}))
}

func TestGenerator_Observe(t *testing.T) {
	g := NewGenerator("b")
	g.Observe([]string{"b7", "x99", "b-2", "bfoo", "b3"})

	assert.Equal(t, "b8", g.Next(nil))
}

func TestGenerator_Concurrent(t *testing.T) {
	g := NewGenerator("")
	ids := make(chan string, 100)
	for i := 0; i < 100; i++ {
		go func() { ids <- g.Next(nil) }()
	}
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := <-ids
		assert.False(t, seen[id], id)
		seen[id] = true
	}
}
