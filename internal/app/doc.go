// Package app wires the HTTP host together: telemetry, the WebSocket hub, the
// run and health services, the chi router and the http.Server.
//
// # Lifecycle
//
//	cfg, _ := config.Load(path)
//	logger, _ := infrastructure.InitializeLogger(cfg.Logging)
//	application, err := app.NewApplication(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	return application.Run(ctx)
//
// Run serves until ctx is cancelled. Shutdown then stops accepting requests,
// cancels the active run and waits for it, closes WebSocket clients and
// flushes telemetry, all bounded by server.shutdown_timeout.
//
// # Middleware
//
// /ws and /metrics only pass through RequestID and RealIP. Everything under
// /api also gets tracing, request logging, panic recovery, security headers,
// CORS and, when enabled, rate limiting.
//
// The package never calls os.Exit; errors go back to main.
package app
