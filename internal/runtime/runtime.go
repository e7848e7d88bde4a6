package runtime

import (
	"context"
	"errors"
	"time"

	cfgpkg "github.com/aboly3304/sos-bot/internal/config"
	"github.com/aboly3304/sos-bot/internal/factlog"
	"github.com/aboly3304/sos-bot/internal/profile"
	pebblestore "github.com/aboly3304/sos-bot/internal/storage/pebble"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// Runtime wires storage, config, and facades for a single-node instance.
type Runtime struct {
	db     *pebblestore.DB
	config cfgpkg.Config
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: opts.DataDir, Fsync: opts.Fsync, FsyncInterval: opts.FsyncInterval})
	if err != nil {
		return nil, err
	}
	return &Runtime{db: db, config: opts.Config}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	it.Close()
	return nil
}

// OpenFactLog opens the durable fact log backed by the runtime DB.
func (r *Runtime) OpenFactLog() (*factlog.Log, error) {
	return factlog.Open(r.db)
}

// Profiles returns the participant profile store.
func (r *Runtime) Profiles() *profile.Store {
	return profile.NewStore(r.db)
}

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
