package analytics

// ComparisonMetrics holds period-over-period percentage changes. A nil field
// means the previous period had nothing to compare against.
type ComparisonMetrics struct {
	VisitorsChange    *float64 `json:"visitorsChange,omitempty"`
	PageviewsChange   *float64 `json:"pageviewsChange,omitempty"`
	SessionsChange    *float64 `json:"sessionsChange,omitempty"`
	BounceRateChange  *float64 `json:"bounceRateChange,omitempty"`
	SessionTimeChange *float64 `json:"sessionTimeChange,omitempty"`
}

func percentageChange(current, previous float64) *float64 {
	if previous <= 0 {
		return nil
	}
	change := round2((current - previous) / previous * 100)
	return &change
}

// Compare computes the change of current relative to previous.
func Compare(current, previous Totals) *ComparisonMetrics {
	return &ComparisonMetrics{
		VisitorsChange:    percentageChange(float64(current.Visitors), float64(previous.Visitors)),
		PageviewsChange:   percentageChange(float64(current.Pageviews), float64(previous.Pageviews)),
		SessionsChange:    percentageChange(float64(current.Sessions), float64(previous.Sessions)),
		BounceRateChange:  percentageChange(current.BounceRate, previous.BounceRate),
		SessionTimeChange: percentageChange(current.SessionTime, previous.SessionTime),
	}
}
