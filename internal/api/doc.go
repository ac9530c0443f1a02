// Package api hosts the ops HTTP server. Notable routes:
//   - GET /healthz and /readyz for liveness and readiness checks.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/runs and /v1/runs/{run_id} for live run progress from the progress board.
//   - GET /v1/sites/{site}/runs for the run ledger history of one board.
//   - GET /v1/sites/{site}/stats and /v1/postings?url= for what the posting store holds.
package api
