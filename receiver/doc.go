// Package receiver pulls Telegram updates with long polling.
//
//	updates := make(chan tg.Update, cfg.UpdateBufferSize)
//	poller, err := receiver.NewPollingClient(token, updates, logger, cfg)
//	if err != nil {
//	    return err
//	}
//	if err := poller.Start(ctx); err != nil {
//	    return err
//	}
//	defer poller.Stop()
//
// The offset only moves past an update once it has been handed to the
// updates channel, so a full channel never loses updates. Failed polls back
// off exponentially behind a circuit breaker; an invalid token or too many
// consecutive failures stop the loop.
package receiver
