/*
Package api implements the tracething admin HTTP listener.

The admin listener is separate from the DNS ports and binds to loopback by
default. It is read-only: every request other than GET or HEAD is refused
before it reaches a handler.

# Endpoints

	GET /health   component health, 503 if any component is unhealthy
	GET /ready    200 once the DNS listeners and source registry are up
	GET /livez    process liveness, always 200
	GET /metrics  Prometheus exposition
	GET /slots    slot table occupancy and registered source keys

Example /slots response:

	{
	  "status": "ok",
	  "timestamp": "2026-10-19T10:00:00Z",
	  "slots": {"capacity": 60001, "used": 412, "next": 412, "names": 412},
	  "sources": ["doc", "gist", "wikipedia"]
	}

# Usage

	admin := api.NewAdminServer(slots, registry.Keys())
	go func() {
		if err := admin.Start("127.0.0.1:9153"); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Logger.Error().Err(err).Msg("admin listener failed")
		}
	}()
	defer admin.Shutdown(context.Background())
*/
package api
