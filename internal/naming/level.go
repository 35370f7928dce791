package naming

import "strings"

// Level is a namespace level. Levels nest component → module → application → global.
type Level int

const (
	LevelComponent Level = iota
	LevelModule
	LevelApplication
	LevelGlobal
)

var levelPrefixes = [...]string{
	LevelComponent:   "comp",
	LevelModule:      "module",
	LevelApplication: "app",
	LevelGlobal:      "global",
}

// Levels lists every level from the innermost outwards.
var Levels = []Level{LevelComponent, LevelModule, LevelApplication, LevelGlobal}

// String returns a human-readable representation of the level.
func (l Level) String() string {
	switch l {
	case LevelComponent:
		return "component"
	case LevelModule:
		return "module"
	case LevelApplication:
		return "application"
	case LevelGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// ParseLevel accepts a level's name or its name prefix root, e.g. "component" or "comp".
func ParseLevel(s string) (Level, bool) {
	for _, l := range Levels {
		if s == l.String() || s == l.Root() {
			return l, true
		}
	}
	return 0, false
}

// Root returns the first segment of names qualified with this level.
func (l Level) Root() string {
	if l < LevelComponent || l > LevelGlobal {
		return ""
	}
	return levelPrefixes[l]
}

// Prefix returns the qualifying prefix for names at this level, e.g. "comp/".
func (l Level) Prefix() string {
	return l.Root() + "/"
}

// Qualify prefixes a relative name with this level.
func (l Level) Qualify(relative string) string {
	return l.Prefix() + strings.TrimPrefix(relative, "/")
}

// Private reports whether the level owns a component-private namespace.
func (l Level) Private() bool {
	return l == LevelComponent
}

// Shared reports whether the level accepts contributed shared bindings.
func (l Level) Shared() bool {
	return l != LevelComponent
}

// Parent returns the enclosing level. Global has none.
func (l Level) Parent() (Level, bool) {
	if l >= LevelGlobal {
		return 0, false
	}
	return l + 1, true
}

// LevelOf returns the level a qualified name belongs to. Relative names
// report false.
func LevelOf(name string) (Level, bool) {
	for _, l := range Levels {
		root := l.Root()
		if name == root || strings.HasPrefix(name, root+"/") {
			return l, true
		}
	}
	return 0, false
}

// IsComponentName reports whether name lives in the component-private namespace.
func IsComponentName(name string) bool {
	l, ok := LevelOf(name)
	return ok && l == LevelComponent
}

// Relative strips the level prefix from a qualified name.
func Relative(name string) string {
	if l, ok := LevelOf(name); ok {
		return strings.TrimPrefix(strings.TrimPrefix(name, l.Root()), "/")
	}
	return name
}
