package naming

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/xraph/binder/internal/errors"
	"github.com/xraph/binder/internal/logger"
	"github.com/xraph/binder/internal/metrics"
)

// maxDrainPasses bounds how many times one broadcast re-scans the chain for
// registrations added while it was running.
const maxDrainPasses = 64

// DeferredConsumer is a producer of bindings that has not finished populating
// its namespace. Resolving it may bind new names; contributed reports whether
// it did.
type DeferredConsumer interface {
	ResolveDeferred(ctx context.Context) (contributed bool, err error)
}

// DeferredFunc adapts a function to DeferredConsumer.
type DeferredFunc func(ctx context.Context) (bool, error)

func (f DeferredFunc) ResolveDeferred(ctx context.Context) (bool, error) {
	return f(ctx)
}

// PendingToken identifies a deferred registration.
type PendingToken string

// DeferredState is the state of a deferred registration.
type DeferredState int

const (
	DeferredPending DeferredState = iota
	DeferredResolving
	DeferredResolved
)

func (s DeferredState) String() string {
	switch s {
	case DeferredPending:
		return "pending"
	case DeferredResolving:
		return "resolving"
	default:
		return "resolved"
	}
}

type registration struct {
	token    PendingToken
	consumer DeferredConsumer
	owner    *scope

	state DeferredState
	err   error
	done  chan struct{}
}

// PendingInfo describes a pending registration for introspection.
type PendingInfo struct {
	Token    PendingToken `json:"token"`
	Consumer string       `json:"consumer"`
}

// coordinator lets consumers that are not fully resolved attach to a scope
// node, and resolves them when a lookup on that node's chain misses.
// mu is never held while a consumer runs.
type coordinator struct {
	mu      sync.Mutex
	byScope map[ScopeID][]*registration
	byToken map[PendingToken]*registration

	log     logger.Logger
	metrics metrics.Collector
}

func newCoordinator(log logger.Logger, m metrics.Collector) *coordinator {
	return &coordinator{
		byScope: make(map[ScopeID][]*registration),
		byToken: make(map[PendingToken]*registration),
		log:     log,
		metrics: m,
	}
}

func (c *coordinator) register(owner *scope, consumer DeferredConsumer) PendingToken {
	reg := &registration{
		token:    PendingToken(uuid.NewString()),
		consumer: consumer,
		owner:    owner,
		done:     make(chan struct{}),
	}

	c.mu.Lock()
	c.byScope[owner.id] = append(c.byScope[owner.id], reg)
	c.byToken[reg.token] = reg
	c.mu.Unlock()

	c.metrics.PendingDeferred(1)
	c.log.Debug("deferred reference registered",
		logger.Scope(owner.owner),
		logger.String("token", string(reg.token)))
	return reg.token
}

// resolve is the explicit transition to Resolved by the consumer's owner. A
// failure swallowed by an earlier broadcast is returned here. It releases the
// registration.
func (c *coordinator) resolve(ctx context.Context, token PendingToken) error {
	c.mu.Lock()
	reg, ok := c.byToken[token]
	if !ok {
		c.mu.Unlock()
		return errors.ErrConfiguration("unknown deferred reference "+string(token), nil)
	}

	switch reg.state {
	case DeferredPending:
		c.takeLocked(reg)
		c.mu.Unlock()
		c.run(ctx, reg)
	case DeferredResolving:
		c.mu.Unlock()
		select {
		case <-reg.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		c.mu.Unlock()
	}

	c.mu.Lock()
	delete(c.byToken, token)
	c.mu.Unlock()
	return reg.err
}

// state reports the state of a registration.
func (c *coordinator) state(token PendingToken) (DeferredState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reg, ok := c.byToken[token]
	if !ok {
		return 0, false
	}
	return reg.state, true
}

// drain resolves every pending registration attached to the given chain,
// including registrations that appear on the chain while draining. No
// registration is resolved twice in one call. Failures are logged and kept
// for the consumer's owner. It reports whether any consumer contributed.
func (c *coordinator) drain(ctx context.Context, chain []*scope) bool {
	produced := false
	drained := make(map[*registration]struct{})

	for pass := 0; ; pass++ {
		if pass == maxDrainPasses {
			c.log.Warn("deferred reference broadcast stopped before the chain was empty",
				logger.Int("passes", pass))
			break
		}

		c.mu.Lock()
		var batch []*registration
		for _, s := range chain {
			for _, reg := range c.byScope[s.id] {
				if _, seen := drained[reg]; seen {
					continue
				}
				drained[reg] = struct{}{}
				batch = append(batch, reg)
			}
		}
		for _, reg := range batch {
			c.takeLocked(reg)
		}
		c.mu.Unlock()

		if len(batch) == 0 {
			break
		}

		for _, reg := range batch {
			if c.run(ctx, reg) {
				produced = true
			}
		}
	}
	return produced
}

// takeLocked moves a pending registration to Resolving. Caller holds mu.
func (c *coordinator) takeLocked(reg *registration) {
	regs := c.byScope[reg.owner.id]
	for i, r := range regs {
		if r == reg {
			regs = append(regs[:i], regs[i+1:]...)
			break
		}
	}
	if len(regs) == 0 {
		delete(c.byScope, reg.owner.id)
	} else {
		c.byScope[reg.owner.id] = regs
	}
	reg.state = DeferredResolving
}

// run resolves a registration taken by takeLocked.
func (c *coordinator) run(ctx context.Context, reg *registration) (contributed bool) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("deferred reference panicked: %v", r)
			}
		}()
		contributed, err = reg.consumer.ResolveDeferred(ctx)
	}()

	c.mu.Lock()
	reg.state = DeferredResolved
	reg.err = err
	close(reg.done)
	c.mu.Unlock()

	c.metrics.PendingDeferred(-1)
	if err != nil {
		c.log.Warn("deferred reference failed to resolve",
			logger.Scope(reg.owner.owner),
			logger.String("token", string(reg.token)),
			logger.Error(err))
		return false
	}
	return contributed
}

// dropScope forgets every registration owned by s.
func (c *coordinator) dropScope(s *scope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := len(c.byScope[s.id])
	delete(c.byScope, s.id)
	for token, reg := range c.byToken {
		if reg.owner == s {
			delete(c.byToken, token)
		}
	}
	if pending > 0 {
		c.metrics.PendingDeferred(-pending)
	}
}

// pending lists the registrations still pending on a scope.
func (c *coordinator) pending(id ScopeID) []PendingInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	regs := c.byScope[id]
	out := make([]PendingInfo, 0, len(regs))
	for _, reg := range regs {
		out = append(out, PendingInfo{
			Token:    reg.token,
			Consumer: describeConsumer(reg.consumer),
		})
	}
	return out
}

func describeConsumer(consumer DeferredConsumer) string {
	if s, ok := consumer.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", consumer)
}
