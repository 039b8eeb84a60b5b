// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/contacts/lookup for synchronous contact extraction.
//   - POST /v1/agents/... to queue competitor and patent runs, and
//     GET /v1/runs/... to follow them.
//   - GET listings for stored lookups, insights and patents.
//   - POST /v1/content/generate for marketing drafts.
package api
