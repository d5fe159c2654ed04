package proxy

import "expvar"

var (
	forwardedTotal      = expvar.NewInt("proxy_forwarded_total")
	loginThrottledTotal = expvar.NewInt("proxy_login_throttled_total")

	sessionRejectedTotal = expvar.NewInt("proxy_session_rejected_total")
)
