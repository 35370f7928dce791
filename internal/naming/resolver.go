package naming

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/xraph/binder/internal/errors"
	"github.com/xraph/binder/internal/logger"
	"github.com/xraph/binder/internal/metrics"
)

// resolveEnv is the ambient context a reference is resolved in.
type resolveEnv struct {
	scope  *scope
	typ    string
	info   *ResourceInfo
	naming NamingContext
}

type visitedKey struct{}

type scopeTraceKey struct{}

// scopeTrace records whether a walk produced an object that depends on the
// scope it was resolved from.
type scopeTrace struct {
	scoped bool
}

func markScoped(ctx context.Context) {
	if tr, ok := ctx.Value(scopeTraceKey{}).(*scopeTrace); ok {
		tr.scoped = true
	}
}

// visited returns the references being resolved on the current call chain,
// outermost first.
func visited(ctx context.Context) []*IndirectRef {
	chain, _ := ctx.Value(visitedKey{}).([]*IndirectRef)
	return chain
}

func withVisited(ctx context.Context, chain []*IndirectRef, ref *IndirectRef) context.Context {
	next := make([]*IndirectRef, len(chain), len(chain)+1)
	copy(next, chain)
	return context.WithValue(ctx, visitedKey{}, append(next, ref))
}

// resolver walks the fallback chain for indirect references.
type resolver struct {
	e     *Engine
	group singleflight.Group
}

// resolve turns ref into a concrete object. A reference already on the call
// chain is a loop. Concurrent top-level resolutions of one reference from
// one scope share a single walk; nested ones never wait on another
// goroutine's walk.
func (r *resolver) resolve(ctx context.Context, ref *IndirectRef, env resolveEnv) (any, error) {
	if ref.Target == "" {
		return nil, errors.ErrEmptyTarget
	}
	if obj, scoped, ok := ref.cached(env.scope.id); ok {
		if scoped {
			markScoped(ctx)
		}
		return obj, nil
	}

	chain := visited(ctx)
	for _, seen := range chain {
		if seen == ref {
			return nil, loopError(chain, ref)
		}
	}
	ctx = withVisited(ctx, chain, ref)

	if len(chain) > 0 {
		return r.walk(ctx, ref, env)
	}
	key := fmt.Sprintf("%p@%d", ref, env.scope.id)
	obj, err, _ := r.group.Do(key, func() (any, error) {
		return r.walk(ctx, ref, env)
	})
	return obj, err
}

func loopError(chain []*IndirectRef, ref *IndirectRef) error {
	names := make([]string, 0, len(chain)+1)
	for _, c := range chain {
		names = append(names, c.DisplayName())
	}
	return errors.ErrLookupLoop(append(names, ref.DisplayName()))
}

func (r *resolver) walk(ctx context.Context, ref *IndirectRef, env resolveEnv) (obj any, err error) {
	parent := ctx
	tr := &scopeTrace{}
	ctx = context.WithValue(ctx, scopeTraceKey{}, tr)

	ctx, span := r.e.tracer.Start(ctx, "binder.Resolve", trace.WithAttributes(
		attribute.String("binder.reference", ref.DisplayName()),
		attribute.String("binder.target", ref.Target),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	typ := ref.Type
	if typ == "" {
		typ = env.typ
	}
	info := ref.Info
	if info == nil {
		info = env.info
	}
	env = resolveEnv{scope: env.scope, typ: typ, info: info, naming: env.naming}

	obj, path, err := r.fallback(ctx, ref, env)
	if err != nil {
		r.e.metrics.Resolution(metrics.PathNone)
		return nil, err
	}

	span.SetAttributes(attribute.String("binder.path", path))
	r.e.metrics.Resolution(path)

	memo := NoScope
	if ref.scopeBound() || tr.scoped {
		memo = env.scope.id
		markScoped(parent)
	}
	return ref.remember(memo, obj), nil
}

// fallback runs the resolution steps in order and stops at the first
// object. It returns the step that produced it.
func (r *resolver) fallback(ctx context.Context, ref *IndirectRef, env resolveEnv) (any, string, error) {
	log := r.e.log.With(logger.Binding(ref.Target), logger.String("reference", ref.DisplayName()))
	last := metrics.PathNone

	if IsComponentName(ref.Target) {
		last = metrics.PathComponent
		obj, err := r.fromComponent(ctx, ref.Target, env)
		if err != nil {
			return nil, last, err
		}
		if obj != nil {
			return obj, last, nil
		}
		log.Debug("component namespace has no binding, trying factories")
	}

	last = metrics.PathFactory
	obj, err := r.fromFactory(ctx, ref.Target, env.typ, ref.Default, env.info)
	if err != nil {
		return nil, last, err
	}
	if obj != nil {
		return obj, last, nil
	}

	if r.e.isExternal(ref.Target) {
		last = metrics.PathRegistry
		obj, _, err := r.fromRegistry(ctx, ref.Target, env.typ, env.info)
		if err != nil {
			return nil, last, err
		}
		if obj != nil {
			return obj, last, nil
		}
		log.Debug("service registry has no match")
	}

	// The engine's own naming facility would repeat the component step.
	if env.naming != nil || !IsComponentName(ref.Target) {
		last = metrics.PathNaming
		obj, err := r.fromNaming(ctx, ref.Target, env)
		if err != nil {
			return nil, last, err
		}
		if obj != nil {
			markScoped(ctx)
			return obj, last, nil
		}
	}

	if ref.Default && r.e.cfg.DefaultResources {
		last = metrics.PathDefault
		obj, err := r.fromDefault(ctx, env.typ, env.info)
		if err != nil {
			return nil, last, err
		}
		if obj != nil {
			return obj, last, nil
		}
	}

	log.Debug("fallback chain exhausted", logger.String("path", last))

	switch {
	case ref.Default:
		return nil, last, errors.ErrDefaultBindingNotFound(ref.Target, env.typ, ref.DisplayName(), last)
	case ref.Listener != "":
		return nil, last, errors.ErrListenerBindingNotFound(ref.Target, env.typ, ref.DisplayName(), last).
			WithContext("listener", ref.Listener)
	default:
		return nil, last, errors.ErrBindingNotFound(ref.Target, env.typ, ref.DisplayName(), last)
	}
}

// fromComponent resolves a component name against the scope's private
// namespace. A miss returns nil without error.
func (r *resolver) fromComponent(ctx context.Context, name string, env resolveEnv) (any, error) {
	b, err := r.e.findBinding(ctx, env.scope, name)
	if err != nil {
		if errors.IsResolution(err) {
			return nil, nil
		}
		return nil, err
	}

	switch v := b.(type) {
	case *IndirectRef:
		return r.resolve(ctx, v, env)
	case *FactoryRef:
		return v.CreateResource(ctx, env.info)
	default:
		return r.e.materialize(ctx, b, env)
	}
}

// fromFactory asks the factory registry for a producer of name. A typed
// miss on an explicitly declared binding is retried once without the type,
// since the declared type may not match the produced one exactly.
func (r *resolver) fromFactory(ctx context.Context, name, typ string, isDefault bool, info *ResourceInfo) (any, error) {
	obj, err := r.createFrom(ctx, name, typ, info)
	if err != nil || obj != nil {
		return obj, err
	}
	if isDefault || typ == "" {
		return nil, nil
	}
	return r.createFrom(ctx, name, "", info)
}

func (r *resolver) createFrom(ctx context.Context, name, typ string, info *ResourceInfo) (any, error) {
	factory, ok, err := r.e.factories.FindFactory(ctx, name, typ)
	if err != nil || !ok {
		return nil, err
	}
	return factory.CreateResource(ctx, info)
}

// fromRegistry consults the external service registry for a name carrying
// the external marker. Candidates are tried in the registry's order.
func (r *resolver) fromRegistry(ctx context.Context, name, typ string, info *ResourceInfo) (any, bool, error) {
	if r.e.services == nil {
		return nil, false, nil
	}

	key := strings.TrimPrefix(name, r.e.cfg.ExternalPrefix)
	candidates, err := r.e.services.Services(ctx, key, typ)
	if err != nil {
		if errors.IsTransientUnavailable(err) {
			r.e.log.Debug("service registry unavailable", logger.Binding(name), logger.Error(err))
			return nil, false, nil
		}
		return nil, false, err
	}

	for _, c := range candidates {
		obj, err := r.dereference(ctx, c.Object, info)
		if err != nil {
			return nil, false, err
		}
		if obj != nil {
			return obj, true, nil
		}
	}
	return nil, false, nil
}

// dereference follows the external system's redirection for located objects
// that require it.
func (r *resolver) dereference(ctx context.Context, obj any, info *ResourceInfo) (any, error) {
	switch v := obj.(type) {
	case *FactoryRef:
		return v.CreateResource(ctx, info)
	case Redirector:
		return v.Redirect(ctx, info)
	default:
		return obj, nil
	}
}

// fromNaming asks the naming facility directly. An unavailable facility or
// a miss is absence.
func (r *resolver) fromNaming(ctx context.Context, name string, env resolveEnv) (any, error) {
	n := env.naming
	if n == nil {
		n = r.e.Naming(env.scope.id)
	}

	obj, err := n.Lookup(ctx, name)
	if err != nil {
		if errors.IsAbsent(err) {
			r.e.log.Debug("naming facility has no binding", logger.Binding(name), logger.Error(err))
			return nil, nil
		}
		return nil, err
	}
	return obj, nil
}

func (r *resolver) fromDefault(ctx context.Context, typ string, info *ResourceInfo) (any, error) {
	if typ == "" {
		return nil, nil
	}
	p, ok := r.e.defaults.provider(typ)
	if !ok {
		return nil, nil
	}
	return p.CreateDefault(ctx, typ, info)
}
