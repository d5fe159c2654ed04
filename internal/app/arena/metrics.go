package arena

import "expvar"

var (
	sessionsOpenedTotal  = expvar.NewInt("arena_sessions_opened_total")
	sessionsExpiredTotal = expvar.NewInt("arena_sessions_expired_total")
	sessionsActive       = expvar.NewInt("arena_sessions_active")
	ticksTotal           = expvar.NewInt("arena_ticks_total")
	joinsTotal           = expvar.NewInt("arena_joins_total")
)
