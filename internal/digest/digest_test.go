package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyDeterministic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Key("tag", "glass"), Key("tag", "glass"))
	assert.Len(t, Key("tag", "glass"), 64)
}

func TestKeyBoundaryCollisions(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, Key("a", "bc"), Key("ab", "c"))
	assert.NotEqual(t, Key("tag", "x"), Key("person", "x"))
}
