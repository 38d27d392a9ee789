// Package storage defines the sink contract the load pipeline writes through,
// plus the backend factory registry. Backends (postgres, sqlite, mssql) live
// in subpackages and register themselves from init().
package storage

import (
	"context"
	"fmt"
	"sync"

	"tabload/internal/schema"
)

// Params are the connection fields collected from the operator. Backends turn
// them into a driver DSN; an explicit Config.DSN bypasses them entirely.
type Params struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Missing returns the human-readable names of unset connection fields, in a
// stable order, so the caller can prompt for exactly what is absent.
func (p Params) Missing() []string {
	var out []string
	if p.Host == "" {
		out = append(out, "Host")
	}
	if p.Port == "" {
		out = append(out, "Port")
	}
	if p.Database == "" {
		out = append(out, "Database Name")
	}
	if p.Username == "" {
		out = append(out, "Username")
	}
	if p.Password == "" {
		out = append(out, "Password")
	}
	return out
}

// Config selects and parameterizes a backend.
type Config struct {
	// Kind must match a registered backend kind ("postgres", "sqlite", "mssql").
	Kind string `json:"kind"`
	// DSN, when set, is passed to the backend verbatim.
	DSN string `json:"dsn,omitempty"`
	// Params build the DSN when DSN is empty. SQLite only uses Database (the
	// file path).
	Params Params `json:"params,omitempty"`
}

// Repository is the sink for typed tables.
//
// ReplaceTable implements REPLACE_IF_EXISTS semantics: drop any existing
// table with that name, create it from the plan, and insert all rows --
// atomically where the backend supports transactional DDL, so a file is
// either fully written or not at all. The backend owns the mapping from
// TargetType to its native column types.
type Repository interface {
	// Ping verifies the connection. The orchestrator calls it once per batch
	// so an unreachable sink fails every file with one clear reason instead
	// of one confusing reason each.
	Ping(ctx context.Context) error

	// ReplaceTable writes one table and reports the number of rows inserted.
	ReplaceTable(ctx context.Context, name string, plan []schema.ColumnPlan, rows [][]any) (int64, error)

	// Close releases the connection. Safe to call once; callers treat it as
	// "call once".
	Close()
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Backend packages call it from
// init(); registering the same kind twice panics to fail fast on ambiguous
// backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
