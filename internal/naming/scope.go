package naming

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xraph/binder/internal/errors"
)

// ScopeID is a stable handle to a scope node in the namespace arena.
type ScopeID uint64

const (
	// NoScope is the zero handle. It never names a node.
	NoScope ScopeID = 0
	// GlobalScope is the root of every scope tree.
	GlobalScope ScopeID = 1
)

func (id ScopeID) String() string {
	return fmt.Sprintf("scope#%d", uint64(id))
}

// DeploymentUnit identifies what is being deployed. A component belongs to a
// module, a module to an application. The zero value is the server-wide
// global unit.
type DeploymentUnit struct {
	Application string
	Module      string
	Component   string
}

// GlobalUnit is the server-wide unit contributing directly to the global namespace.
var GlobalUnit = DeploymentUnit{}

// Level returns the namespace level the unit owns.
func (u DeploymentUnit) Level() Level {
	switch {
	case u.Component != "":
		return LevelComponent
	case u.Module != "":
		return LevelModule
	case u.Application != "":
		return LevelApplication
	default:
		return LevelGlobal
	}
}

// Key returns the owner identifier of the unit's scope node.
func (u DeploymentUnit) Key() string {
	switch u.Level() {
	case LevelComponent:
		return u.Application + "/" + u.Module + "/" + u.Component
	case LevelModule:
		return u.Application + "/" + u.Module
	case LevelApplication:
		return u.Application
	default:
		return "global"
	}
}

func (u DeploymentUnit) String() string {
	return u.Key()
}

// Validate checks that every enclosing level is named.
func (u DeploymentUnit) Validate() error {
	for _, part := range []string{u.Application, u.Module, u.Component} {
		if strings.Contains(part, "/") {
			return errors.ErrConfiguration("deployment unit names cannot contain '/'", nil).
				WithContext("unit", u.Key())
		}
	}
	if u.Component != "" && u.Module == "" {
		return errors.ErrConfiguration("component "+u.Component+" has no module", nil)
	}
	if u.Module != "" && u.Application == "" {
		return errors.ErrConfiguration("module "+u.Module+" has no application", nil)
	}
	return nil
}

// parent returns the unit owning the enclosing scope.
func (u DeploymentUnit) parent() DeploymentUnit {
	switch u.Level() {
	case LevelComponent:
		return DeploymentUnit{Application: u.Application, Module: u.Module}
	case LevelModule:
		return DeploymentUnit{Application: u.Application}
	default:
		return GlobalUnit
	}
}

// scope is one node of the scope tree. Nodes hold the handle of their
// parent only; the arena owns every node.
type scope struct {
	id     ScopeID
	level  Level
	owner  string
	parent ScopeID

	// compMu guards comp. Only component nodes have a private namespace.
	compMu sync.RWMutex
	comp   *BindingMap[Binding]

	// shared is guarded by namespace.sharedMu.
	shared *BindingMap[*SharedBinding]

	// children is guarded by namespace.mu.
	children map[ScopeID]struct{}
}

func newScope(id ScopeID, level Level, owner string, parent ScopeID) *scope {
	s := &scope{
		id:       id,
		level:    level,
		owner:    owner,
		parent:   parent,
		children: make(map[ScopeID]struct{}),
	}
	if level.Private() {
		s.comp = NewBindingMap[Binding](level.String())
	}
	if level.Shared() {
		s.shared = NewBindingMap[*SharedBinding](level.String())
	}
	return s
}

// lookupPrivate reads the component-private namespace under its read lock.
func (s *scope) lookupPrivate(name string) (Binding, bool) {
	if s.comp == nil {
		return nil, false
	}
	s.compMu.RLock()
	defer s.compMu.RUnlock()
	return s.comp.Lookup(name)
}

// ScopeInfo describes a scope node.
type ScopeInfo struct {
	ID     ScopeID
	Level  Level
	Owner  string
	Parent ScopeID
}
