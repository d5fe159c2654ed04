package httptransport

import "expvar"

var (
	metricSSEConnectionsTotal  = expvar.NewInt("dashboard_sse_connections_total")
	metricSSEConnectionsActive = expvar.NewInt("dashboard_sse_connections_active")
	metricHTTPErrorsTotal      = expvar.NewInt("http_domain_errors_total")
	metricForbiddenTotal       = expvar.NewInt("dashboard_forbidden_total")
)
