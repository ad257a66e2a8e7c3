/*
Package health provides health check mechanisms for a storage node's own
dependencies: whether its Raft transport is accepting connections, and
whether an HTTP-fronted collaborator (a sidecar, an embedded transport
layer) is responding.

This package implements two checker kinds — HTTP and TCP — each
satisfying the Checker interface with a Check(ctx) call that returns a
Result. Status applies a consecutive-failure threshold before reporting
a transition to unhealthy.

# Core Components

Checker:
  - HTTPChecker: GETs a URL, healthy on a status in 200-399 by default
  - TCPChecker: dials an address, healthy on connect

Status:
  - tracks consecutive successes/failures; turns unhealthy after
    Config.Retries consecutive failures and healthy again on the first
    success
  - InStartPeriod suppresses false failures during a configurable warm-up

# Usage

	readiness := health.NewTCPChecker(bindAddr).WithTimeout(2 * time.Second)

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		result := readiness.Check(r.Context())
		if !result.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})

# Integration Points

  - cmd/storaged: serves /readyz off a TCPChecker against its own Raft
    transport address, and /healthz as a liveness check
*/
package health
