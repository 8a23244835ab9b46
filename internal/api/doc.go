// Package api hosts the optional operator HTTP server started by the collect
// command. Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /status for the live run snapshot.
//   - GET /status/checkpoint for per-source completion read from the checkpoint.
package api
