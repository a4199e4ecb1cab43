package modeladapter

import (
	"context"
	"log/slog"
	"time"

	"github.com/germanamz/lingua/pkg/chats/request"
	"github.com/germanamz/lingua/pkg/providers/provider"
)

// Middleware wraps a Completer, returning a new Completer with added
// behaviour.
type Middleware func(next provider.Completer) provider.Completer

// Chain applies middlewares around a Completer. The first middleware is
// outermost.
func Chain(inner provider.Completer, mws ...Middleware) provider.Completer {
	for i := len(mws) - 1; i >= 0; i-- {
		inner = mws[i](inner)
	}

	return inner
}

// WithLogging returns a Middleware that logs completion start, duration,
// reported token usage, and error for the named vendor.
func WithLogging(log *slog.Logger, vendor string) Middleware {
	return func(next provider.Completer) provider.Completer {
		return provider.CompleterFunc(func(ctx context.Context, req request.ModelRequest) (request.ModelResponse, error) {
			log.InfoContext(ctx, "completion started",
				"vendor", vendor,
				"messages", len(req.Messages),
			)

			start := time.Now()

			resp, err := next.Complete(ctx, req)

			duration := time.Since(start)

			if err != nil {
				log.ErrorContext(ctx, "completion failed",
					"vendor", vendor,
					"duration", duration,
					"error", err,
				)

				return resp, err
			}

			log.InfoContext(ctx, "completion finished",
				"vendor", vendor,
				"duration", duration,
				"model", resp.ModelName,
				"input_tokens", resp.Usage.InputTokens(),
				"output_tokens", resp.Usage.OutputTokens(),
			)

			return resp, nil
		})
	}
}
