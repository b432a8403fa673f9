package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"runtime/debug"

	"github.com/shandysiswandi/gonotif/internal/pkg/instrument"
	"github.com/shandysiswandi/gonotif/internal/pkg/stacktrace"
)

// handle runs handler with the correlation ID restored and panics converted to errors.
func handle(ctx context.Context, driver string, handler Handler, msg Message) (err error) {
	if cID := msg.Header(HeaderCorrelationID); cID != "" {
		ctx = instrument.SetCorrelationID(ctx, cID)
	}

	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			paths := stacktrace.InternalPaths(stack)
			if len(paths) == 0 {
				slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "topic", msg.Topic, "panic", rvr, "stack", string(stack))
			} else {
				slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "topic", msg.Topic, "panic", rvr, "stack", paths)
			}
			err = fmt.Errorf("messaging: panic in %s handler: %v", driver, rvr)
		}
	}()

	return handler(ctx, msg)
}

// outgoingHeaders copies msg headers and stamps the correlation ID from ctx.
func outgoingHeaders(ctx context.Context, msg OutgoingMessage) map[string]string {
	headers := make(map[string]string, len(msg.Headers)+1)
	maps.Copy(headers, msg.Headers)
	if _, ok := headers[HeaderCorrelationID]; !ok {
		if cID := instrument.GetCorrelationID(ctx); cID != "" {
			headers[HeaderCorrelationID] = cID
		}
	}
	return headers
}
