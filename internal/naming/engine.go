package naming

import (
	"context"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xraph/binder/internal/config"
	"github.com/xraph/binder/internal/errors"
	"github.com/xraph/binder/internal/logger"
	"github.com/xraph/binder/internal/metrics"
)

const tracerName = "github.com/xraph/binder/internal/naming"

// Engine is the scoped naming and indirect-reference resolution engine.
type Engine struct {
	cfg     config.Config
	log     logger.Logger
	metrics metrics.Collector
	tracer  trace.Tracer

	ns       *namespace
	deferred *coordinator
	resolver *resolver

	factories FactoryRegistry
	builtin   *Factories
	services  ServiceRegistry
	defaults  *DefaultProviders
	merge     MergeFunc

	tracerProvider trace.TracerProvider
	closed         atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the engine configuration.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracerProvider sets the provider spans are created from when tracing
// is enabled. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracerProvider = tp
	}
}

// WithFactoryRegistry replaces the built-in factory registry.
func WithFactoryRegistry(r FactoryRegistry) Option {
	return func(e *Engine) {
		e.factories = r
	}
}

// WithServiceRegistry sets the external service registry.
func WithServiceRegistry(r ServiceRegistry) Option {
	return func(e *Engine) {
		e.services = r
	}
}

// WithDefaultProviders sets the default-resource providers.
func WithDefaultProviders(d *DefaultProviders) Option {
	return func(e *Engine) {
		e.defaults = d
	}
}

// WithMergeFunc sets the resolver for conflicting shared contributions.
func WithMergeFunc(m MergeFunc) Option {
	return func(e *Engine) {
		e.merge = m
	}
}

// New creates an engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{cfg: config.DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if e.log == nil {
		e.log = logger.NewNoopLogger()
	}
	e.log = e.log.Named("binder")
	if e.metrics == nil {
		e.metrics = metrics.NewNoop()
	}

	switch {
	case !e.cfg.Tracing.Enabled:
		e.tracer = noop.NewTracerProvider().Tracer(tracerName)
	case e.tracerProvider != nil:
		e.tracer = e.tracerProvider.Tracer(tracerName)
	default:
		e.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}

	if e.factories == nil {
		e.builtin = NewFactories(e.cfg.FactoryWaitTimeout, e.log, e.metrics)
		e.factories = e.builtin
	}
	if e.defaults == nil {
		e.defaults = NewDefaultProviders()
	}

	e.ns = newNamespace()
	e.deferred = newCoordinator(e.log, e.metrics)
	e.resolver = &resolver{e: e}
	return e, nil
}

// Factories returns the built-in factory registry, or nil when a custom
// registry was supplied.
func (e *Engine) Factories() *Factories {
	return e.builtin
}

// Defaults returns the default-resource providers.
func (e *Engine) Defaults() *DefaultProviders {
	return e.defaults
}

// Config returns the engine configuration.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Close rejects further deployments and lookups.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return errors.ErrEngineClosed
	}
	return e.log.Sync()
}

// Scope returns the scope node owned by unit, creating it and its ancestors
// on first access.
func (e *Engine) Scope(unit DeploymentUnit) (ScopeID, error) {
	if e.closed.Load() {
		return NoScope, errors.ErrEngineClosed
	}
	s, err := e.ns.ensure(unit)
	if err != nil {
		return NoScope, err
	}
	return s.id, nil
}

// FindScope returns the scope node owned by unit if it exists.
func (e *Engine) FindScope(unit DeploymentUnit) (ScopeID, bool) {
	s, ok := e.ns.find(unit)
	if !ok {
		return NoScope, false
	}
	return s.id, true
}

// ScopeInfo describes the node behind id.
func (e *Engine) ScopeInfo(id ScopeID) (ScopeInfo, error) {
	s, err := e.ns.node(id)
	if err != nil {
		return ScopeInfo{}, err
	}
	return ScopeInfo{ID: s.id, Level: s.level, Owner: s.owner, Parent: s.parent}, nil
}

// LookupRequest is the lookup inbound interface.
type LookupRequest struct {
	// Scope is the node the lookup is made from.
	Scope ScopeID
	// Name is a qualified or relative name.
	Name string
	// Type is the type the caller expects, if known.
	Type string
	// Info is the caller's resource metadata.
	Info *ResourceInfo
	// Naming overrides the naming facility consulted by the resolver.
	Naming NamingContext
}

// Lookup resolves a name to a concrete object.
func (e *Engine) Lookup(ctx context.Context, req LookupRequest) (obj any, err error) {
	ctx, span := e.tracer.Start(ctx, "binder.Lookup", trace.WithAttributes(
		attribute.String("binder.name", req.Name),
		attribute.String("binder.scope", req.Scope.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	level := levelLabel(req.Name)
	defer func() {
		outcome := "hit"
		if err != nil {
			outcome = "miss"
			if !errors.IsAbsent(err) {
				outcome = "error"
			}
		}
		e.metrics.Lookup(level, outcome)
	}()

	if e.closed.Load() {
		return nil, errors.ErrEngineClosed
	}
	if req.Name == "" {
		return nil, errors.ErrEmptyName
	}

	s, err := e.ns.node(req.Scope)
	if err != nil {
		return nil, err
	}

	env := resolveEnv{scope: s, typ: req.Type, info: req.Info, naming: req.Naming}

	if e.isExternal(req.Name) {
		obj, found, err := e.resolver.fromRegistry(ctx, req.Name, req.Type, req.Info)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errors.ErrBindingNotFound(req.Name, req.Type, req.Name, metrics.PathRegistry)
		}
		return obj, nil
	}

	b, err := e.findBinding(ctx, s, req.Name)
	if err != nil {
		return nil, err
	}
	return e.materialize(ctx, b, env)
}

// LookupBinding returns the raw binding for name without resolving it.
func (e *Engine) LookupBinding(ctx context.Context, id ScopeID, name string) (Binding, error) {
	s, err := e.ns.node(id)
	if err != nil {
		return nil, err
	}
	return e.findBinding(ctx, s, name)
}

// ResolveOption configures a single Resolve call.
type ResolveOption func(*resolveEnv)

// ResolveWithNaming makes the resolver consult n instead of the engine's own
// naming facility.
func ResolveWithNaming(n NamingContext) ResolveOption {
	return func(env *resolveEnv) {
		env.naming = n
	}
}

// Resolve resolves an indirect reference as seen from the given scope.
func (e *Engine) Resolve(ctx context.Context, id ScopeID, ref *IndirectRef, typ string, info *ResourceInfo, opts ...ResolveOption) (any, error) {
	if e.closed.Load() {
		return nil, errors.ErrEngineClosed
	}
	if ref == nil {
		return nil, errors.ErrNilBinding
	}
	s, err := e.ns.node(id)
	if err != nil {
		return nil, err
	}
	env := resolveEnv{scope: s, typ: typ, info: info}
	for _, opt := range opts {
		opt(&env)
	}
	return e.resolver.resolve(ctx, ref, env)
}

// HasPrefix reports whether a qualified name is bound or is a context of
// bound names, as seen from the scope.
func (e *Engine) HasPrefix(id ScopeID, name string) bool {
	s, err := e.ns.node(id)
	if err != nil {
		return false
	}
	return e.ns.hasPrefix(s, name)
}

// List enumerates the direct children of a qualified context name.
func (e *Engine) List(id ScopeID, prefix string) ([]string, error) {
	s, err := e.ns.node(id)
	if err != nil {
		return nil, err
	}
	return e.ns.listChildren(s, prefix)
}

// Naming returns a naming facility that looks names up from the scope.
func (e *Engine) Naming(id ScopeID) NamingContext {
	return scopedNaming{e: e, id: id}
}

// findBinding looks name up from s. On a miss, pending deferred references on
// the chain are drained and the lookup is retried once: always for component
// names, otherwise only when a consumer contributed something.
func (e *Engine) findBinding(ctx context.Context, s *scope, name string) (Binding, error) {
	if b, ok := e.ns.lookup(s, name); ok {
		return b, nil
	}

	produced := e.deferred.drain(ctx, e.ns.chain(s))
	if produced || IsComponentName(name) {
		if b, ok := e.ns.lookup(s, name); ok {
			return b, nil
		}
	}
	return nil, errors.ErrNameNotFound(name)
}

// materialize turns a binding into the object it denotes.
func (e *Engine) materialize(ctx context.Context, b Binding, env resolveEnv) (any, error) {
	switch v := b.(type) {
	case *Value:
		return v.Object, nil
	case *LazyValue:
		return v.Get(ctx)
	case *IndirectRef:
		return e.resolver.resolve(ctx, v, env)
	case *FactoryRef:
		return v.CreateResource(ctx, env.info)
	default:
		return nil, errors.ErrInternalInvariant("unknown binding variant", nil)
	}
}

func (e *Engine) isExternal(name string) bool {
	return strings.HasPrefix(name, e.cfg.ExternalPrefix)
}

func levelLabel(name string) string {
	if l, ok := LevelOf(name); ok {
		return l.String()
	}
	return "relative"
}

// scopedNaming is the engine's own naming facility bound to a scope.
type scopedNaming struct {
	e  *Engine
	id ScopeID
}

func (n scopedNaming) Lookup(ctx context.Context, name string) (any, error) {
	if n.e.closed.Load() {
		return nil, errors.ErrTransientUnavailable("engine")
	}
	if _, err := n.e.ns.node(n.id); err != nil {
		return nil, errors.ErrTransientUnavailable(n.id.String())
	}
	return n.e.Lookup(ctx, LookupRequest{Scope: n.id, Name: name})
}
