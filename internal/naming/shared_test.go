package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimSet(t *testing.T) {
	c := newClaimSet("shop/orders")
	assert.Equal(t, 1, c.count())

	assert.False(t, c.acquire("shop/orders"), "a unit is counted once")
	assert.True(t, c.acquire("shop/billing"))
	assert.Equal(t, 2, c.count())
	assert.Equal(t, []string{"shop/billing", "shop/orders"}, c.units())

	released, empty := c.release("shop/unknown")
	assert.False(t, released)
	assert.False(t, empty)

	released, empty = c.release("shop/orders")
	assert.True(t, released)
	assert.False(t, empty)

	released, empty = c.release("shop/billing")
	assert.True(t, released)
	assert.True(t, empty)
}

func TestReleaseShared_EvictsOnce(t *testing.T) {
	s := newScope(5, LevelModule, "shop/orders", 2)
	sb := newSharedBinding("module/z", NewValue("z", "string"), "a")
	sb.claims.acquire("b")
	require.NoError(t, s.shared.Bind("module/z", sb))

	assert.False(t, releaseShared(s, "module/z", "a"))
	_, ok := s.shared.Lookup("module/z")
	assert.True(t, ok, "still claimed by b")

	assert.False(t, releaseShared(s, "module/z", "a"), "a second release is a no-op")

	assert.True(t, releaseShared(s, "module/z", "b"))
	_, ok = s.shared.Lookup("module/z")
	assert.False(t, ok)
	assert.True(t, sb.evicted)

	assert.False(t, releaseShared(s, "module/z", "b"))
}
