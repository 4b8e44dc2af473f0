// Package outbox stages side effects during a store transaction and runs them
// only after the transaction has committed.
//
// A mutating operation creates one Outbox per transaction attempt. Actions
// staged by an attempt that rolls back are dropped with it:
//
//	box := outbox.New()
//	err := store.WithinTx(ctx, func(ctx context.Context, tx ports.RevisionTx) error {
//	    ...
//	    return box.Stage(outbox.Publish(publisher, event))
//	})
//	if err != nil {
//	    return err
//	}
//
//	for _, f := range box.Flush(ctx) {
//	    logger.Warn("side effect failed", slog.String("action", f.Action.Description()), slog.Any("error", f.Err))
//	}
//
// Flush is best effort. Every action runs even when an earlier one fails, and
// a failure never undoes the committed transaction.
package outbox
