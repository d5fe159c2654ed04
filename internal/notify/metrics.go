package notify

import "expvar"

var metricNotificationsTotal = expvar.NewInt("notifications_total")
