/*
Package api implements the meshrelay admin HTTP server.

The server is optional and listens on the admin address from the
configuration (127.0.0.1:9179 by default). It never touches the UDP path:
handlers only read Prometheus collectors, the health registry and the
message store.

# Endpoints

	GET /health     component health, 503 when listener or store failed
	GET /ready      200 once the listener is bound and the store is open
	GET /livez      always 200 while the process runs
	GET /metrics    Prometheus exposition
	GET /messages   newest stored records, ?limit=N (default 20, max 500)

# Usage

	srv := api.NewServer(store)
	go func() {
		if err := srv.Start(cfg.Admin.Addr); err != nil {
			logger.Error().Err(err).Msg("Admin server failed")
		}
	}()
	defer srv.Shutdown(context.Background())
*/
package api
