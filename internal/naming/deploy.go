package naming

import (
	"context"

	"github.com/xraph/binder/internal/errors"
	"github.com/xraph/binder/internal/logger"
)

// Entry is one binding contributed by a deployment.
type Entry struct {
	Name    string
	Binding Binding
}

// Batch groups a deployment's bindings by target namespace level. Names may
// be relative or qualified with the level they are listed under.
type Batch map[Level][]Entry

// Add appends a binding to the batch.
func (b Batch) Add(level Level, name string, binding Binding) Batch {
	b[level] = append(b[level], Entry{Name: name, Binding: binding})
	return b
}

type stagedEntry struct {
	level   Level
	name    string
	binding Binding
	target  *scope
}

type sharedOp struct {
	entry  stagedEntry
	saved  *SharedBinding
	merged Binding
}

// Deploy binds a unit's batch. The whole batch is validated first and then
// becomes visible at once: nothing is bound if any entry is rejected.
func (e *Engine) Deploy(ctx context.Context, unit DeploymentUnit, batch Batch) error {
	if e.closed.Load() {
		return errors.ErrEngineClosed
	}
	if err := unit.Validate(); err != nil {
		return err
	}

	owner := unit.Key()
	for level := range batch {
		if level < LevelComponent || level > LevelGlobal {
			return errors.NewDeployError(owner, "", errors.ErrConfiguration("unknown namespace level "+level.String(), nil))
		}
	}

	s, err := e.ns.ensure(unit)
	if err != nil {
		return err
	}

	var comp, shared []stagedEntry
	for _, level := range Levels {
		for _, entry := range batch[level] {
			staged, err := e.stage(s, unit, level, entry)
			if err != nil {
				return err
			}
			if level.Private() {
				comp = append(comp, staged)
			} else {
				shared = append(shared, staged)
			}
		}
	}

	if len(comp) > 0 {
		s.compMu.Lock()
		defer s.compMu.Unlock()
	}
	if len(shared) > 0 {
		e.ns.sharedMu.Lock()
		defer e.ns.sharedMu.Unlock()
	}

	var txn *BindingTxn[Binding]
	if len(comp) > 0 {
		txn = s.comp.Txn()
		for _, entry := range comp {
			if err := txn.Bind(entry.name, entry.binding); err != nil {
				return errors.NewDeployError(owner, entry.name, err)
			}
		}
	}

	ops, err := e.planShared(owner, shared)
	if err != nil {
		return err
	}

	if txn != nil {
		txn.Commit()
	}
	added := e.commitShared(owner, ops)

	if added > 0 {
		e.metrics.SharedBindings(added)
	}
	e.log.Info("deployed bindings",
		logger.Unit(owner),
		logger.Int("component", len(comp)),
		logger.Int("shared", len(shared)))
	return nil
}

// stage validates one entry and qualifies its name.
func (e *Engine) stage(s *scope, unit DeploymentUnit, level Level, entry Entry) (stagedEntry, error) {
	owner := unit.Key()
	if entry.Name == "" {
		return stagedEntry{}, errors.NewDeployError(owner, entry.Name, errors.ErrEmptyName)
	}
	if entry.Binding == nil {
		return stagedEntry{}, errors.NewDeployError(owner, entry.Name, errors.ErrNilBinding)
	}

	name := entry.Name
	if l, ok := LevelOf(name); ok {
		if l != level {
			return stagedEntry{}, errors.NewDeployError(owner, name,
				errors.ErrConfiguration("name is qualified for the "+l.String()+
					" namespace but listed under "+level.String(), nil))
		}
	} else {
		name = level.Qualify(name)
	}

	if level.Private() {
		if unit.Level() != LevelComponent {
			return stagedEntry{}, errors.NewDeployError(owner, name,
				errors.ErrComponentNamespaceViolation(name, owner))
		}
		return stagedEntry{level: level, name: name, binding: entry.Binding, target: s}, nil
	}

	target, ok := e.ns.ancestor(s, level)
	if !ok {
		return stagedEntry{}, errors.NewDeployError(owner, name,
			errors.ErrConfiguration(owner+" has no enclosing "+level.String()+" namespace", nil))
	}
	return stagedEntry{level: level, name: name, binding: entry.Binding, target: target}, nil
}

// planShared decides how each shared entry merges with what is already
// bound. Caller holds sharedMu for writing.
func (e *Engine) planShared(owner string, entries []stagedEntry) ([]sharedOp, error) {
	type key struct {
		target ScopeID
		name   string
	}
	seen := make(map[key]struct{}, len(entries))
	ops := make([]sharedOp, 0, len(entries))

	for _, entry := range entries {
		k := key{entry.target.id, entry.name}
		if _, dup := seen[k]; dup {
			return nil, errors.NewDeployError(owner, entry.name,
				errors.ErrDuplicateBinding(entry.name, entry.level.String()))
		}
		seen[k] = struct{}{}

		saved, exists := entry.target.shared.Lookup(entry.name)
		if !exists {
			ops = append(ops, sharedOp{entry: entry})
			continue
		}
		if saved.claims.holds(owner) {
			return nil, errors.NewDeployError(owner, entry.name,
				errors.ErrDuplicateBinding(entry.name, entry.level.String()))
		}
		if sameBinding(saved.binding, entry.binding) {
			ops = append(ops, sharedOp{entry: entry, saved: saved})
			continue
		}
		if e.merge == nil {
			return nil, errors.NewDeployError(owner, entry.name, errors.ErrBindingConflict(entry.name, nil))
		}
		merged, err := e.merge(entry.name, saved.binding, entry.binding)
		if err != nil {
			return nil, errors.NewDeployError(owner, entry.name, errors.ErrBindingConflict(entry.name, err))
		}
		if merged == nil {
			return nil, errors.NewDeployError(owner, entry.name,
				errors.ErrBindingConflict(entry.name, errors.ErrNilBinding))
		}
		ops = append(ops, sharedOp{entry: entry, saved: saved, merged: merged})
	}
	return ops, nil
}

// commitShared applies planned operations and records the unit's claims.
// It returns the number of new shared entries.
func (e *Engine) commitShared(owner string, ops []sharedOp) int {
	added := 0
	for _, op := range ops {
		entry := op.entry
		switch {
		case op.saved == nil:
			entry.target.shared.Put(entry.name, newSharedBinding(entry.name, entry.binding, owner))
			added++
		default:
			if op.merged != nil {
				op.saved.binding = op.merged
			}
			op.saved.claims.acquire(owner)
			e.log.Debug("shared binding claimed by another unit",
				logger.Binding(entry.name),
				logger.Unit(owner),
				logger.Int("contributors", op.saved.claims.count()))
		}
		e.ns.claims[owner] = append(e.ns.claims[owner], sharedClaim{scope: entry.target, name: entry.name})
	}
	return added
}

// Undeploy releases everything a unit contributed. Non-global units also
// lose their scope node and every node below it, children first. Shared
// bindings disappear when their last contributor is undeployed.
func (e *Engine) Undeploy(ctx context.Context, unit DeploymentUnit) error {
	if err := unit.Validate(); err != nil {
		return err
	}

	if unit.Level() == LevelGlobal {
		evicted := e.ns.releaseClaims(unit.Key())
		e.releasedShared(unit.Key(), evicted, 0)
		return nil
	}

	s, ok := e.ns.find(unit)
	if !ok {
		return errors.ErrScopeNotFound(unit.Key())
	}

	evicted, removed := 0, 0
	for _, n := range e.ns.subtree(s) {
		evicted += e.ns.releaseClaims(n.owner)
		e.deferred.dropScope(n)
		e.ns.forgetScope(n)
		e.ns.detach(n)
		removed++
	}
	e.releasedShared(unit.Key(), evicted, removed)
	return nil
}

func (e *Engine) releasedShared(owner string, evicted, removed int) {
	if evicted > 0 {
		e.metrics.SharedBindings(-evicted)
	}
	e.log.Info("undeployed unit",
		logger.Unit(owner),
		logger.Int("evicted", evicted),
		logger.Int("scopes", removed))
}

// RegisterDeferred attaches a consumer that may still contribute bindings
// to the scope. It is resolved by the first lookup on the scope's chain that
// misses, or explicitly through ResolveDeferred.
//
// The registration, and any error a broadcast swallowed, is retained until
// the owner calls ResolveDeferred with the token or the scope is undeployed.
// Owners of long-lived scopes must resolve every token they register.
func (e *Engine) RegisterDeferred(id ScopeID, consumer DeferredConsumer) (PendingToken, error) {
	if e.closed.Load() {
		return "", errors.ErrEngineClosed
	}
	if consumer == nil {
		return "", errors.ErrConfiguration("deferred consumer cannot be nil", nil)
	}
	s, err := e.ns.node(id)
	if err != nil {
		return "", err
	}
	return e.deferred.register(s, consumer), nil
}

// ResolveDeferred resolves a registration on behalf of its owner. It returns
// the consumer's error, including one swallowed by an earlier broadcast.
func (e *Engine) ResolveDeferred(ctx context.Context, token PendingToken) error {
	return e.deferred.resolve(ctx, token)
}

// DeferredState reports the state of a registration that has not been
// explicitly resolved yet.
func (e *Engine) DeferredState(token PendingToken) (DeferredState, bool) {
	return e.deferred.state(token)
}
