package naming

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// Snapshot is a point-in-time view of every scope node.
type Snapshot struct {
	Scopes []ScopeSnapshot `json:"scopes"`
}

// ScopeSnapshot describes one scope node. Scopes are listed parents first;
// Depth is the nesting depth below the global node.
type ScopeSnapshot struct {
	ID         ScopeID          `json:"id"`
	Level      string           `json:"level"`
	Owner      string           `json:"owner"`
	Parent     ScopeID          `json:"parent,omitempty"`
	Depth      int              `json:"depth"`
	Components int              `json:"componentBindings,omitempty"`
	Shared     []SharedSnapshot `json:"shared,omitempty"`
	Pending    []PendingInfo    `json:"pending,omitempty"`
}

// SharedSnapshot describes one shared binding.
type SharedSnapshot struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Type         string   `json:"type,omitempty"`
	Contributors int      `json:"contributors"`
	Holders      []string `json:"holders"`
}

// DumpOptions controls Dump output.
type DumpOptions struct {
	// Color enables ANSI colors on scope headers.
	Color bool
}

func bindingKind(b Binding) string {
	switch b.(type) {
	case *Value:
		return "value"
	case *LazyValue:
		return "lazy"
	case *IndirectRef:
		return "indirect"
	case *FactoryRef:
		return "factory"
	default:
		return "unknown"
	}
}

type walkedScope struct {
	node  *scope
	depth int
}

// walk lists the scope tree parents first, children in handle order.
func (ns *namespace) walk() []walkedScope {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	var out []walkedScope
	var visit func(n *scope, depth int)
	visit = func(n *scope, depth int) {
		out = append(out, walkedScope{node: n, depth: depth})
		ids := make([]ScopeID, 0, len(n.children))
		for id := range n.children {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			if child, ok := ns.nodes[id]; ok {
				visit(child, depth+1)
			}
		}
	}
	visit(ns.nodes[GlobalScope], 0)
	return out
}

// Snapshot captures every scope node, its shared bindings with contributor
// counts, and its pending deferred consumers.
func (e *Engine) Snapshot() Snapshot {
	var snap Snapshot
	for _, w := range e.ns.walk() {
		n := w.node
		ss := ScopeSnapshot{
			ID:      n.id,
			Level:   n.level.String(),
			Owner:   n.owner,
			Parent:  n.parent,
			Depth:   w.depth,
			Pending: e.deferred.pending(n.id),
		}

		if n.comp != nil {
			n.compMu.RLock()
			ss.Components = n.comp.Len()
			n.compMu.RUnlock()
		}

		if n.shared != nil {
			e.ns.sharedMu.RLock()
			for _, name := range n.shared.Names() {
				sb, ok := n.shared.Lookup(name)
				if !ok {
					continue
				}
				ss.Shared = append(ss.Shared, SharedSnapshot{
					Name:         name,
					Kind:         bindingKind(sb.binding),
					Type:         sb.binding.DeclaredType(),
					Contributors: sb.claims.count(),
					Holders:      sb.claims.units(),
				})
			}
			e.ns.sharedMu.RUnlock()
		}

		snap.Scopes = append(snap.Scopes, ss)
	}
	return snap
}

var levelColors = map[string]color.Attribute{
	LevelComponent.String():   color.FgGreen,
	LevelModule.String():      color.FgBlue,
	LevelApplication.String(): color.FgMagenta,
	LevelGlobal.String():      color.FgCyan,
}

// Dump writes a text report of the scope tree, indented by nesting depth.
func (e *Engine) Dump(w io.Writer, opts DumpOptions) error {
	var b strings.Builder
	for _, s := range e.Snapshot().Scopes {
		indent := strings.Repeat("  ", s.Depth)

		header := color.New(levelColors[s.Level], color.Bold)
		if opts.Color {
			header.EnableColor()
		} else {
			header.DisableColor()
		}
		fmt.Fprintf(&b, "%s%s %s\n", indent,
			header.Sprintf("[%s] %s", s.Level, s.Owner),
			s.ID)

		if s.Components > 0 {
			fmt.Fprintf(&b, "%s  component bindings: %d\n", indent, s.Components)
		}
		for _, sb := range s.Shared {
			typ := sb.Type
			if typ == "" {
				typ = "-"
			}
			fmt.Fprintf(&b, "%s  %s (%s, %s) contributors=%d [%s]\n", indent,
				sb.Name, sb.Kind, typ, sb.Contributors, strings.Join(sb.Holders, ", "))
		}
		for _, p := range s.Pending {
			fmt.Fprintf(&b, "%s  pending %s: %s\n", indent, p.Token, p.Consumer)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
