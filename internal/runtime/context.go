// Package runtime carries the state shared by every command: the loaded
// settings, build metadata and the metrics registry.
package runtime

import (
	"sync"

	"github.com/tphakala/birdnet-census/internal/buildinfo"
	"github.com/tphakala/birdnet-census/internal/conf"
	"github.com/tphakala/birdnet-census/internal/observability"
)

// Context is filled by the root command before a subcommand runs.
type Context struct {
	Settings *conf.Settings
	Build    *buildinfo.Context

	// Metrics is nil until the root command has created the registry.
	Metrics *observability.Metrics

	mu       sync.Mutex
	shutdown []func()
}

// NewContext creates a context with default settings.
func NewContext(build *buildinfo.Context) *Context {
	return &Context{
		Settings: conf.Defaults(),
		Build:    build,
	}
}

// OnShutdown registers fn to run on Shutdown. Functions run in reverse
// registration order.
func (c *Context) OnShutdown(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown = append(c.shutdown, fn)
}

// Shutdown runs and clears the registered shutdown functions.
func (c *Context) Shutdown() {
	c.mu.Lock()
	fns := c.shutdown
	c.shutdown = nil
	c.mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
