package middleware

import (
	"context"

	"deskhub/internal/app/commands"
	"deskhub/internal/app/outbox"
)

// OutboxFlush hands queued event records to the delivery channel once the
// handler has finished. Placed inside Transaction so the records commit with
// the mutation; actual dispatch to administrators is the worker's job and
// can never roll the write back.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
