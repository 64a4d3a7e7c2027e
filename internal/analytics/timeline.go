package analytics

import (
	"sitepulse/internal/events"
	"sitepulse/internal/timeframe"
)

// Timeline counts events per bucket of tf. Events outside the frame are
// ignored and empty buckets are reported as zero.
func Timeline(evts []events.Event, tf *timeframe.TimeFrame, types ...events.EventType) []timeframe.DateStat {
	counts := make(map[int64]int)
	for i := range evts {
		e := &evts[i]
		if !tf.Contains(e.OccurredAt) || !matchesType(e.EventType, types) {
			continue
		}
		counts[tf.BucketStart(e.OccurredAt).Unix()]++
	}
	return tf.BuildTimeSeriesPoints(counts)
}

func matchesType(t events.EventType, types []events.EventType) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}
