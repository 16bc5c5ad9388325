// Package remote contains the orchestrator's clients for the two leaf
// services. A shared Caller performs JSON request/response calls with a
// per-attempt timeout and the shell retry policy; the BorrowerDirectory and
// Catalog clients translate remote outcomes into the workflow error
// taxonomy, scoped to the entity that was queried.
package remote
