package engine

import (
	"context"
	"sync"

	"github.com/dpinedaj/loom/internal/errors"
	"github.com/dpinedaj/loom/internal/manifest"
)

// ExecOptions carries per-node execution modifiers.
type ExecOptions struct {
	FullRefresh   bool
	StoreFailures bool
}

// Adapter is the warehouse connection a run executes nodes against.
type Adapter interface {
	Name() string
	Open(creds Credentials) error
	ExecNode(ctx context.Context, node manifest.Executable, opts ExecOptions) error
	RunOperation(ctx context.Context, macro string, args map[string]interface{}) error
	Close() error
}

// AdapterFactory constructs an unopened adapter.
type AdapterFactory func() Adapter

// AdapterRegistry maps adapter type names to factories and tracks the active
// adapter of one invocation. The registry lives on an Invocation, never in
// package state.
type AdapterRegistry struct {
	mu        sync.Mutex
	factories map[string]AdapterFactory
	active    Adapter
}

// NewAdapterRegistry creates an empty registry.
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{factories: make(map[string]AdapterFactory)}
}

// RegisterFactory registers an adapter factory under a type name.
func (r *AdapterRegistry) RegisterFactory(name string, f AdapterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Register opens the adapter named by the runtime configuration's credentials
// and makes it the invocation's active adapter.
func (r *AdapterRegistry) Register(rc *RuntimeConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.factories[rc.Credentials.Type]
	if !ok {
		return errors.NotFound("adapter", rc.Credentials.Type)
	}

	ad := f()
	if err := ad.Open(rc.Credentials); err != nil {
		return errors.Wrap(err, "failed to open adapter "+rc.Credentials.Type)
	}
	r.active = ad
	return nil
}

// Active returns the invocation's active adapter.
func (r *AdapterRegistry) Active() (Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil, errors.New("no adapter registered for this invocation")
	}
	return r.active, nil
}

// Close closes the active adapter, if any.
func (r *AdapterRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil
	}
	err := r.active.Close()
	r.active = nil
	return err
}

func registerBuiltinAdapters(r *AdapterRegistry) {
	r.RegisterFactory("local", func() Adapter { return &localAdapter{} })
}

// localAdapter executes nodes against nothing: it records the call and
// succeeds. It backs the "local" profile type used by tests and dry
// environments.
type localAdapter struct {
	creds Credentials
}

func (a *localAdapter) Name() string { return "local" }

func (a *localAdapter) Open(creds Credentials) error {
	a.creds = creds
	return nil
}

func (a *localAdapter) ExecNode(ctx context.Context, node manifest.Executable, opts ExecOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (a *localAdapter) RunOperation(ctx context.Context, macro string, args map[string]interface{}) error {
	return ctx.Err()
}

func (a *localAdapter) Close() error { return nil }
