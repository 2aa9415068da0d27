// Package logger provides a context-aware wrapper around log/slog with
// functional options, attribute helpers for the checkout domain and
// transparent injection of values stored in context.Context.
//
// New builds a text or json slog.Handler and wraps it with
// LogHandlerDecorator, which runs the registered ContextExtractor callbacks
// before delegating. The wizard session id placed in a context with
// WithSessionID is always extracted, so every record logged while serving a
// wizard session carries "session_id".
//
// # Usage
//
//	log, err := logger.NewFromConfig(cfg.Log)
//	if err != nil {
//	    return err
//	}
//	logger.SetAsDefault(log)
//
//	ctx = logger.WithSessionID(ctx, sessionID)
//	log.InfoContext(ctx, "transition classified",
//	    logger.Plan("Pro"),
//	    logger.Verdict(verdict),
//	)
//
// # Error Handling
//
// Error and Errors produce attributes only for non-nil errors, so
//
//	log.Info("commit finished", logger.Error(err))
//
// needs no nil check.
package logger
