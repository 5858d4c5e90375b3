package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(AwardsGranted.WithLabelValues("challenge"))
	AwardsGranted.WithLabelValues("challenge").Inc()
	if got := testutil.ToFloat64(AwardsGranted.WithLabelValues("challenge")); got != before+1 {
		t.Fatalf("awards=%v, want %v", got, before+1)
	}

	XPGranted.WithLabelValues("activity").Add(150)
	if got := testutil.ToFloat64(XPGranted.WithLabelValues("activity")); got < 150 {
		t.Fatalf("xp=%v, want >= 150", got)
	}
}
