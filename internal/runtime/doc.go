// Package runtime wires storage, config, and facades into a single-node
// SOS service instance. It exposes Open/Close, basic health checks, and
// helpers to open internal components used by higher-level services.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	facts, _ := rt.OpenFactLog()
package runtime
