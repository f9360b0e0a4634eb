package engine

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_Format(t *testing.T) {
	name := UUIDv7Generator{}.Generate()
	assert.Regexp(t, `^coltab_[0-9a-f]{32}$`, name)

	parsed, err := uuid.Parse(strings.TrimPrefix(name, "coltab_"))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestUUIDv7Generator_Concurrent(t *testing.T) {
	gen := UUIDv7Generator{}
	const goroutines = 100

	names := make(chan string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			names <- gen.Generate()
		}()
	}
	wg.Wait()
	close(names)

	seen := make(map[string]bool, goroutines)
	for n := range names {
		require.False(t, seen[n], "name %s generated twice", n)
		seen[n] = true
	}
	assert.Len(t, seen, goroutines)
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}
