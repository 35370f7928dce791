package naming

import (
	"sort"
	"sync"

	"github.com/xraph/binder/internal/errors"
)

// namespace is the arena of scope nodes.
//
// Lock order: a component node's compMu, then sharedMu. mu guards the arena
// structure only and is never held while acquiring either of the others.
type namespace struct {
	mu     sync.RWMutex
	nodes  map[ScopeID]*scope
	owners map[string]ScopeID
	next   ScopeID

	// sharedMu guards every shared map, every SharedBinding and claims.
	sharedMu sync.RWMutex
	claims   map[string][]sharedClaim
}

func newNamespace() *namespace {
	ns := &namespace{
		nodes:  make(map[ScopeID]*scope),
		owners: make(map[string]ScopeID),
		next:   GlobalScope + 1,
		claims: make(map[string][]sharedClaim),
	}
	global := newScope(GlobalScope, LevelGlobal, GlobalUnit.Key(), NoScope)
	ns.nodes[GlobalScope] = global
	ns.owners[global.owner] = GlobalScope
	return ns
}

// ensure returns the node owned by unit, creating it and any missing
// ancestors.
func (ns *namespace) ensure(unit DeploymentUnit) (*scope, error) {
	if err := unit.Validate(); err != nil {
		return nil, err
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.ensureLocked(unit), nil
}

func (ns *namespace) ensureLocked(unit DeploymentUnit) *scope {
	if id, ok := ns.owners[unit.Key()]; ok {
		return ns.nodes[id]
	}

	parent := ns.ensureLocked(unit.parent())
	s := newScope(ns.next, unit.Level(), unit.Key(), parent.id)
	ns.next++

	ns.nodes[s.id] = s
	ns.owners[s.owner] = s.id
	parent.children[s.id] = struct{}{}
	return s
}

// find returns the node owned by unit without creating it.
func (ns *namespace) find(unit DeploymentUnit) (*scope, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	id, ok := ns.owners[unit.Key()]
	if !ok {
		return nil, false
	}
	return ns.nodes[id], true
}

func (ns *namespace) node(id ScopeID) (*scope, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	s, ok := ns.nodes[id]
	if !ok {
		return nil, errors.ErrScopeNotFound(id.String())
	}
	return s, nil
}

// chain returns s followed by its ancestors up to the global node.
func (ns *namespace) chain(s *scope) []*scope {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	chain := []*scope{s}
	for cur := s; cur.parent != NoScope; {
		parent, ok := ns.nodes[cur.parent]
		if !ok {
			break
		}
		chain = append(chain, parent)
		cur = parent
	}
	return chain
}

// ancestor returns the nearest node at level on s's chain.
func (ns *namespace) ancestor(s *scope, level Level) (*scope, bool) {
	for _, n := range ns.chain(s) {
		if n.level == level {
			return n, true
		}
	}
	return nil, false
}

// subtree returns s and its descendants, children before parents.
func (ns *namespace) subtree(s *scope) []*scope {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	var out []*scope
	var visit func(n *scope)
	visit = func(n *scope) {
		ids := make([]ScopeID, 0, len(n.children))
		for id := range n.children {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			if child, ok := ns.nodes[id]; ok {
				visit(child)
			}
		}
		out = append(out, n)
	}
	visit(s)
	return out
}

// detach removes a node from the arena. The global node is never removed.
func (ns *namespace) detach(s *scope) {
	if s.id == GlobalScope {
		return
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()

	delete(ns.nodes, s.id)
	if ns.owners[s.owner] == s.id {
		delete(ns.owners, s.owner)
	}
	if parent, ok := ns.nodes[s.parent]; ok {
		delete(parent.children, s.id)
	}
}

// forgetScope drops the objects that shared references on s's chain
// memoized for s alone.
func (ns *namespace) forgetScope(s *scope) {
	chain := ns.chain(s)

	ns.sharedMu.RLock()
	defer ns.sharedMu.RUnlock()
	for _, n := range chain {
		if n.shared == nil {
			continue
		}
		for _, name := range n.shared.Names() {
			sb, ok := n.shared.Lookup(name)
			if !ok {
				continue
			}
			if ref, ok := sb.binding.(*IndirectRef); ok {
				ref.forgetScope(s.id)
			}
		}
	}
}

// lookupShared reads a shared namespace under the shared read lock.
func (ns *namespace) lookupShared(s *scope, name string) (Binding, bool) {
	if s.shared == nil {
		return nil, false
	}
	ns.sharedMu.RLock()
	defer ns.sharedMu.RUnlock()
	sb, ok := s.shared.Lookup(name)
	if !ok {
		return nil, false
	}
	return sb.binding, true
}

// lookup finds the binding for name as seen from s. Qualified names go to
// the node of their level; relative names walk the chain outwards and the
// first hit wins.
func (ns *namespace) lookup(s *scope, name string) (Binding, bool) {
	if level, ok := LevelOf(name); ok {
		if level.Private() {
			return s.lookupPrivate(name)
		}
		target, ok := ns.ancestor(s, level)
		if !ok {
			return nil, false
		}
		return ns.lookupShared(target, name)
	}

	for _, n := range ns.chain(s) {
		qualified := n.level.Qualify(name)
		var (
			b  Binding
			ok bool
		)
		if n.level.Private() {
			b, ok = n.lookupPrivate(qualified)
		} else {
			b, ok = ns.lookupShared(n, qualified)
		}
		if ok {
			return b, true
		}
	}
	return nil, false
}

// hasPrefix answers subtree-existence queries for a qualified name.
func (ns *namespace) hasPrefix(s *scope, name string) bool {
	level, ok := LevelOf(name)
	if !ok {
		return false
	}
	if level.Private() {
		if s.comp == nil {
			return false
		}
		s.compMu.RLock()
		defer s.compMu.RUnlock()
		return s.comp.HasPrefix(name)
	}

	target, ok := ns.ancestor(s, level)
	if !ok {
		return false
	}
	ns.sharedMu.RLock()
	defer ns.sharedMu.RUnlock()
	return target.shared.HasPrefix(name)
}

// listChildren enumerates direct children of a qualified context name.
func (ns *namespace) listChildren(s *scope, prefix string) ([]string, error) {
	level, ok := LevelOf(prefix)
	if !ok {
		return nil, errors.ErrConfiguration("cannot list relative name '"+prefix+"'", nil)
	}
	if level.Private() {
		if s.comp == nil {
			return nil, nil
		}
		s.compMu.RLock()
		defer s.compMu.RUnlock()
		return s.comp.ListChildren(prefix), nil
	}

	target, ok := ns.ancestor(s, level)
	if !ok {
		return nil, nil
	}
	ns.sharedMu.RLock()
	defer ns.sharedMu.RUnlock()
	return target.shared.ListChildren(prefix), nil
}

// releaseClaims drops every shared claim held by unit and returns how many
// entries were evicted.
func (ns *namespace) releaseClaims(unit string) int {
	ns.sharedMu.Lock()
	defer ns.sharedMu.Unlock()

	evicted := 0
	for _, c := range ns.claims[unit] {
		if releaseShared(c.scope, c.name, unit) {
			evicted++
		}
	}
	delete(ns.claims, unit)
	return evicted
}
