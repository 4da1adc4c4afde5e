package ulid

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = GenerateID()
		require.True(t, ValidID(ids[i]), ids[i])
	}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID("01ARZ3NDEKTSV4RRFFQ69G5FAV"))
	assert.False(t, ValidID("01arz3ndektsv4rrffq69g5fav"))
	assert.False(t, ValidID("not-an-id"))
	assert.False(t, ValidID(""))
}

func TestTime(t *testing.T) {
	before := time.Now().Add(-time.Second)
	ts, ok := Time(GenerateID())
	require.True(t, ok)
	assert.True(t, ts.After(before))

	_, ok = Time("x")
	assert.False(t, ok)
}

func TestMockGenerator(t *testing.T) {
	MockGenerator("A", "B")
	defer ResetGenerator()

	assert.Equal(t, "A", GenerateID())
	assert.Equal(t, "B", GenerateID())
	assert.Equal(t, "B", GenerateID())
}
