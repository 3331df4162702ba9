// Package logger provides slog construction helpers and typed attribute
// constructors shared across the module.
//
// The attribute helpers keep log field names consistent between the
// notification store, the delivery orchestrator, and the channel adapters,
// so that log aggregation queries work across components:
//
//	log.LogAttrs(ctx, slog.LevelInfo, "channel send succeeded",
//	    logger.NotificationID(n.ID),
//	    logger.Channel(ch),
//	    logger.MessageID(res.MessageID),
//	)
//
// Loggers are created via New or NewFromConfig and injected into components
// through their functional options; every component defaults to
// slog.Default() when no logger is provided.
package logger
