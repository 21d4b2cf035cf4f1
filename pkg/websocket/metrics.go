package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// ActiveClients tracks connected websocket clients.
	ActiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sportsarb_ws_active_clients",
		Help: "Number of connected websocket clients",
	})

	// MessagesBroadcastTotal tracks broadcasts by message type.
	MessagesBroadcastTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsarb_ws_messages_broadcast_total",
			Help: "Total number of websocket broadcasts",
		},
		[]string{"type"},
	)

	// SlowClientsDisconnectedTotal tracks clients dropped for a full send buffer.
	SlowClientsDisconnectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsarb_ws_slow_clients_disconnected_total",
		Help: "Total number of websocket clients disconnected for falling behind",
	})

	// WriteErrorsTotal tracks failed websocket writes.
	WriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sportsarb_ws_write_errors_total",
		Help: "Total number of failed websocket writes",
	})
)
