package websocket

import (
	"testing"
)

// TestMetrics_Registration tests all metrics are initialized
func TestMetrics_Registration(t *testing.T) {
	if ActiveClients == nil {
		t.Error("ActiveClients not registered")
	}

	if MessagesBroadcastTotal == nil {
		t.Error("MessagesBroadcastTotal not registered")
	}

	if SlowClientsDisconnectedTotal == nil {
		t.Error("SlowClientsDisconnectedTotal not registered")
	}

	if WriteErrorsTotal == nil {
		t.Error("WriteErrorsTotal not registered")
	}
}
