// Package engine implements the loom execution engine: flags, runtime
// configuration, adapters, and the task types behind each command. The
// package's exported surface is the contract orchestration code programs
// against; it is versioned with the manifest schema and the bundle layout.
package engine

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dpinedaj/loom/internal/logging"
)

// Invocation carries the per-run engine state: flag values, the adapter
// registry, and the run logger. A fresh Invocation per run replaces ambient
// process-wide state; concurrent runs are safe as long as each uses its own
// Invocation.
type Invocation struct {
	ID        uuid.UUID
	Flags     *Flags
	Adapters  *AdapterRegistry
	Logger    *zap.Logger
	StartedAt time.Time
}

// NewInvocation creates an invocation context with default flags, the
// built-in adapter factories, and the process logger.
func NewInvocation() *Invocation {
	inv := &Invocation{
		ID:        uuid.New(),
		Flags:     DefaultFlags(),
		Adapters:  NewAdapterRegistry(),
		Logger:    logging.L(),
		StartedAt: time.Now(),
	}
	registerBuiltinAdapters(inv.Adapters)
	inv.Logger = inv.Logger.With(zap.String("invocation_id", inv.ID.String()))
	return inv
}
