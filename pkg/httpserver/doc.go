// Package httpserver runs an http.Handler with graceful shutdown driven by
// a context, plus liveness and readiness probe handlers.
//
//	srv := httpserver.New(cfg, router, httpserver.WithLogger(log))
//	if err := srv.Run(ctx); err != nil {
//		return err
//	}
//
// Run binds the listener synchronously, so an invalid address fails fast
// with ErrStart. When ctx is done the server stops accepting connections and
// waits up to Config.ShutdownTimeout for in-flight requests.
package httpserver
