package httpapi

import (
	"context"
)

// serverBaseCtx is canceled on shutdown so in-flight generation stops
// before connections drain. Background until SetBaseContext is called.
var serverBaseCtx = context.Background()

// SetBaseContext installs the process-level context handlers derive from.
// A nil ctx restores Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	serverBaseCtx = ctx
}

// joinContexts derives a context that ends when either parent does: the
// request context for client disconnects, the base context for shutdown.
// The returned cancel must be called when the handler finishes.
func joinContexts(base, req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(base)
	stop := context.AfterFunc(req, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
