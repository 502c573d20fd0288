// Package api hosts the operator HTTP endpoint served while a crawl runs.
// Routes:
//   - GET /healthz and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /status for a JSON snapshot of the current run.
package api
