// Package api implements the HTTP control plane API.
//
// Routes are grouped under /api/v1 and authenticated with per-client
// API keys. Mutating instance and backup operations are asynchronous:
// the handler validates the request, records intent, signals the
// Temporal orchestrator and returns 202 Accepted.
package api
