package metrics

import (
	"testing"
)

func TestPrometheusObserver(t *testing.T) {
	obs := NewPrometheusObserver()

	// Just call methods to ensure no panic
	obs.RecordOverrideWrite("user")
	obs.RecordOverrideWrite("team")
	obs.RecordOptIn("bookings-v3")
	obs.RecordEligibilityEval()
}
