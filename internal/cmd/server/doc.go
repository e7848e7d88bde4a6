// Package serverrun exposes a shared Run entrypoint used by the CLI to start
// the SOS runtime with the HTTP API and the optional Telegram gateway,
// handling rehydration, lifecycle, and shutdown.
//
// Example:
//
//	opts := serverrun.Options{DataDir: "./data", Config: config.Default()}
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, opts)
package serverrun
