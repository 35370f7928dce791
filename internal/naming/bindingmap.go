package naming

import (
	"sort"
	"strings"

	iradix "github.com/hashicorp/go-immutable-radix"

	"github.com/xraph/binder/internal/errors"
)

// BindingMap is an ordered, prefix-queryable map from qualified names to
// values, scoped to one namespace. The tree is immutable: readers holding a
// snapshot never observe a partially applied batch. BindingMap itself is not
// synchronized; the owning scope guards it.
type BindingMap[V any] struct {
	label string
	tree  *iradix.Tree
}

// NewBindingMap creates an empty map. label names the namespace in errors.
func NewBindingMap[V any](label string) *BindingMap[V] {
	return &BindingMap[V]{label: label, tree: iradix.New()}
}

// Bind inserts value under name. Binding an existing name is a duplicate.
func (m *BindingMap[V]) Bind(name string, value V) error {
	if name == "" {
		return errors.ErrEmptyName
	}
	if _, exists := m.tree.Get([]byte(name)); exists {
		return errors.ErrDuplicateBinding(name, m.label)
	}
	m.tree, _, _ = m.tree.Insert([]byte(name), value)
	return nil
}

// Put inserts or replaces value under name.
func (m *BindingMap[V]) Put(name string, value V) {
	m.tree, _, _ = m.tree.Insert([]byte(name), value)
}

// Unbind removes name, reporting whether it was bound.
func (m *BindingMap[V]) Unbind(name string) bool {
	tree, _, ok := m.tree.Delete([]byte(name))
	if ok {
		m.tree = tree
	}
	return ok
}

// Lookup returns the value bound to name.
func (m *BindingMap[V]) Lookup(name string) (V, bool) {
	var zero V
	raw, ok := m.tree.Get([]byte(name))
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// HasPrefix reports whether name is bound or is an intermediate context of
// some bound name ("comp/env" for "comp/env/jdbc/ds").
func (m *BindingMap[V]) HasPrefix(name string) bool {
	name = strings.TrimSuffix(name, "/")
	if name == "" {
		return m.tree.Len() > 0
	}
	if _, ok := m.tree.Get([]byte(name)); ok {
		return true
	}
	found := false
	m.tree.Root().WalkPrefix([]byte(name+"/"), func(k []byte, v interface{}) bool {
		found = true
		return true
	})
	return found
}

// ListChildren returns the distinct next path segments below prefix, sorted.
func (m *BindingMap[V]) ListChildren(prefix string) []string {
	prefix = strings.TrimSuffix(prefix, "/")
	walk := ""
	if prefix != "" {
		walk = prefix + "/"
	}

	var children []string
	m.tree.Root().WalkPrefix([]byte(walk), func(k []byte, v interface{}) bool {
		rest := string(k[len(walk):])
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		if rest == "" {
			return false
		}
		// keys arrive in lexical order, so duplicates are adjacent
		if n := len(children); n == 0 || children[n-1] != rest {
			children = append(children, rest)
		}
		return false
	})
	sort.Strings(children)
	return children
}

// Names returns every bound name in lexical order.
func (m *BindingMap[V]) Names() []string {
	names := make([]string, 0, m.tree.Len())
	m.tree.Root().Walk(func(k []byte, v interface{}) bool {
		names = append(names, string(k))
		return false
	})
	return names
}

// Len returns the number of bound names.
func (m *BindingMap[V]) Len() int {
	return m.tree.Len()
}

// Txn starts a batch of writes that become visible together on Commit.
func (m *BindingMap[V]) Txn() *BindingTxn[V] {
	return &BindingTxn[V]{m: m, txn: m.tree.Txn()}
}

// BindingTxn is a pending batch of writes to a BindingMap.
type BindingTxn[V any] struct {
	m   *BindingMap[V]
	txn *iradix.Txn
}

// Bind stages value under name, rejecting names bound in the map or earlier
// in the batch.
func (t *BindingTxn[V]) Bind(name string, value V) error {
	if name == "" {
		return errors.ErrEmptyName
	}
	if _, exists := t.txn.Get([]byte(name)); exists {
		return errors.ErrDuplicateBinding(name, t.m.label)
	}
	t.txn.Insert([]byte(name), value)
	return nil
}

// Commit publishes the batch.
func (t *BindingTxn[V]) Commit() {
	t.m.tree = t.txn.Commit()
}
