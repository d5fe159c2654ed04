package backend

import "expvar"

var (
	requestsTotal       = expvar.NewInt("backend_requests_total")
	failuresTotal       = expvar.NewInt("backend_failures_total")
	breakerRejectsTotal = expvar.NewInt("backend_breaker_rejects_total")
)
