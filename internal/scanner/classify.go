package scanner

import (
	"time"

	"github.com/mselser95/sports-arb/pkg/types"
)

// Classify decides whether an event is in play at now. Ended and cancelled
// events report ok=false and take no part in detection.
func Classify(event *types.Event, now time.Time) (state types.GameState, ok bool) {
	if event.Status.Ended || event.Status.Cancelled {
		return "", false
	}

	if event.Status.Live || event.Status.Started || !event.Status.StartsAt.After(now) {
		return types.GameStateLive, true
	}

	return types.GameStateUpcoming, true
}
