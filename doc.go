/*
Package pooledserver is a minimal concurrent request server.

A listener accepts TCP connections and hands each one, as a one-shot job, to a
fixed-size worker pool. A worker reads the request once, answers it and closes
the connection. There is no keep-alive, pipelining or streaming.

Quick Start

	pooled-server --addr 127.0.0.1:7878 --workers 4 --admin-addr 127.0.0.1:9090

	curl -i http://127.0.0.1:7878/
	curl -i http://127.0.0.1:7878/health
	curl http://127.0.0.1:9090/stats

Embedding:

	cfg := config.Defaults()
	application, err := app.New(&cfg, slog.Default())
	if err != nil {
		log.Fatal(err)
	}
	application.Router().Add("GET", "/version", router.Static(http.NewResponse(200, "OK", "v1")))
	application.Run(context.Background())

Modules

  - app: application lifecycle and ordered shutdown
  - config: flags, environment and config file loading (viper, validator)
  - core: accept loop (Engine) and per-connection Processor
  - core/pools: dispatch queue, worker pool, read buffer pool
  - core/http: request-line parser and response serializer
  - core/router: exact-match route table
  - core/observability: Prometheus metrics and OpenTelemetry tracing
  - core/admin: h2c admin endpoint for /metrics and /stats

Limitations

A read buffer holds 8192 bytes by default; longer requests are truncated. Reads
and writes have no deadline, so a stalled peer keeps its worker busy.
*/
package pooledserver
