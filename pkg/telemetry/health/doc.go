// Package health serves liveness and readiness probes for the long-running
// watch mode.
//
// # Endpoints
//
//   - /healthz: the process is running
//   - /readyz: every critical check passes
//   - /version: build information
//
// # Checks
//
// A check is critical when its failure means no correct answers can be
// served, for example before the first cascade is installed. A failing
// critical check makes /readyz answer 503 with status "unhealthy". Failing
// non-critical checks only degrade the status: a stack that failed to
// reload still serves the previous cascade.
//
//	checker := health.New(2 * time.Second)
//	checker.Register("cascade", true, health.CascadeInstalled(manager))
//	checker.Register("reload", false, health.LastReload(manager))
//	health.Mount(mux, checker, health.VersionInfo{Version: "0.3.0"})
package health
