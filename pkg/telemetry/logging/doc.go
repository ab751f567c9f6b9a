// Package logging configures the structured logger used by the cascade
// command and its long-running watch mode.
//
// It wraps log/slog with a small Config (level, format, source locations)
// and a handful of context helpers so a reload can be traced through the
// log lines it produces:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger.Slog())
//
//	ctx = logging.WithReloadID(ctx, id)
//	logging.Scoped(ctx, logger.Component("source")).Info("stack reloaded", "generation", gen)
//
// Components that are not handed a logger use
// slog.Default().With("component", name), so installing the configured
// logger as the default is usually all that is needed.
package logging
