package naming

import (
	"sort"
)

// claimSet is the contributor count of a shared binding, tracked per
// contributing unit so each unit is counted once and released once.
type claimSet struct {
	holders map[string]struct{}
}

func newClaimSet(unit string) claimSet {
	return claimSet{holders: map[string]struct{}{unit: {}}}
}

// acquire records a claim by unit. A unit already holding a claim is not
// counted again.
func (c *claimSet) acquire(unit string) bool {
	if _, held := c.holders[unit]; held {
		return false
	}
	c.holders[unit] = struct{}{}
	return true
}

// release drops unit's claim. It reports whether a claim was dropped and
// whether the set is now empty.
func (c *claimSet) release(unit string) (released, empty bool) {
	if _, held := c.holders[unit]; !held {
		return false, len(c.holders) == 0
	}
	delete(c.holders, unit)
	return true, len(c.holders) == 0
}

func (c *claimSet) holds(unit string) bool {
	_, held := c.holders[unit]
	return held
}

func (c *claimSet) count() int {
	return len(c.holders)
}

func (c *claimSet) units() []string {
	units := make([]string, 0, len(c.holders))
	for u := range c.holders {
		units = append(units, u)
	}
	sort.Strings(units)
	return units
}

// SharedBinding is a binding contributed to a module, application or global
// namespace, possibly by several units. It is removed from its map exactly
// when the last claim is released. All fields are guarded by the namespace's
// shared lock.
type SharedBinding struct {
	name    string
	binding Binding
	claims  claimSet
	evicted bool
}

func newSharedBinding(name string, b Binding, unit string) *SharedBinding {
	return &SharedBinding{
		name:    name,
		binding: b,
		claims:  newClaimSet(unit),
	}
}

// sharedClaim records that unit holds a claim on name in the given scope.
type sharedClaim struct {
	scope *scope
	name  string
}

// releaseShared drops unit's claim on name in s and erases the entry when it
// was the last one. The caller holds the shared lock in write mode.
func releaseShared(s *scope, name, unit string) (evicted bool) {
	sb, ok := s.shared.Lookup(name)
	if !ok || sb.evicted {
		return false
	}
	released, empty := sb.claims.release(unit)
	if !released || !empty {
		return false
	}
	sb.evicted = true
	s.shared.Unbind(name)
	return true
}
