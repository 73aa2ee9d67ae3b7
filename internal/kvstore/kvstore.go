// Package kvstore is the flat key-value persistence collaborator behind the
// preference store.
//
// The broker core only needs Get/Put/Delete/List plus a liveness signal; the
// concrete engine (in-memory, SQLite file, Redis) is a deployment choice.
// Engines never surface transient unavailability per call — the preference
// store keeps serving from its cache and reconciles when the engine's state
// callback reports the connection is back.
package kvstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"notibroker/pkg/logx"
)

var (
	ErrKeyNotFound = errors.New("kvstore: key not found")
	ErrClosed      = errors.New("kvstore: engine closed")
)

// Engine is the minimal persistence API consumed by the preference store.
type Engine interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// List returns every key/value pair whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string]string, error)
	// OnState registers a liveness callback. It fires with alive=false when
	// the engine loses its backend and alive=true once it reconnects. The
	// callback runs on an engine-owned goroutine; implementations must not
	// call back into the engine from it.
	OnState(fn func(alive bool))
	Close() error
}

// Config selects and tunes the persistence engine.
//
// Driver values:
//   - "memory": process-local map, lost on restart
//   - "sqlite": single-file SQLite database
//   - "redis":  shared Redis instance (replicated deployments)
type Config struct {
	Driver string `json:"driver" yaml:"driver"`

	// sqlite
	Path        string        `json:"path,omitempty" yaml:"path,omitempty"`
	BusyTimeout time.Duration `json:"busy_timeout,omitempty" yaml:"busy_timeout,omitempty"`

	// redis
	Addr         string        `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password     string        `json:"password,omitempty" yaml:"password,omitempty"`
	DB           int           `json:"db,omitempty" yaml:"db,omitempty"`
	Namespace    string        `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	PingInterval time.Duration `json:"ping_interval,omitempty" yaml:"ping_interval,omitempty"`
}

// Open initializes the configured engine. An empty driver defaults to
// "memory" so tests and bare-bones deployments need no configuration.
func Open(cfg Config, log logx.Logger) (Engine, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "redis":
		return openRedis(cfg, log)
	default:
		return nil, errors.New("kvstore: unknown driver: " + driver)
	}
}
