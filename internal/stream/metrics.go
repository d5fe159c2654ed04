package stream

import "expvar"

var metricDroppedEvents = expvar.NewInt("stream_dropped_events_total")
