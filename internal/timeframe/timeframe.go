package timeframe

import (
	"fmt"
	"time"
)

// DateStat is one point of a time series.
type DateStat struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type TimeFrameBucketSize string

const (
	TimeFrameBucketSizeMonth TimeFrameBucketSize = "month"
	TimeFrameBucketSizeDay   TimeFrameBucketSize = "day"
	TimeFrameBucketSizeHour  TimeFrameBucketSize = "hour"
)

// TimeFrameRangeLabel represents the available time range options
type TimeFrameRangeLabel string

const (
	TimeFrameRangeLabelToday       TimeFrameRangeLabel = "today"
	TimeFrameRangeLabelYesterday   TimeFrameRangeLabel = "yesterday"
	TimeFrameRangeLabelLast24Hours TimeFrameRangeLabel = "last_24_hours"
	TimeFrameRangeLabelLast7Days   TimeFrameRangeLabel = "last_7_days"
	TimeFrameRangeLabelLast30Days  TimeFrameRangeLabel = "last_30_days"
	TimeFrameRangeLabelMonthToDate TimeFrameRangeLabel = "month_to_date"
	TimeFrameRangeLabelLastMonth   TimeFrameRangeLabel = "last_month"
	TimeFrameRangeLabelAllTime     TimeFrameRangeLabel = "all_time"
	TimeFrameRangeLabelCustom      TimeFrameRangeLabel = "custom"
)

type TimeProvider interface {
	Now(loc *time.Location) time.Time
}

// DefaultTimeProvider uses the system clock.
type DefaultTimeProvider struct{}

func (p *DefaultTimeProvider) Now(loc *time.Location) time.Time {
	return time.Now().In(loc)
}

// TimeFrame is the half-open interval [From, To).
type TimeFrame struct {
	From       time.Time
	To         time.Time
	Label      TimeFrameRangeLabel
	BucketSize TimeFrameBucketSize
	Tz         *time.Location
}

// NewTimeFrame builds a frame and picks a bucket size suited to its length.
func NewTimeFrame(from, to time.Time, label TimeFrameRangeLabel, tz *time.Location) (*TimeFrame, error) {
	if from.After(to) {
		return nil, fmt.Errorf("fromTime must be before toTime")
	}
	if tz == nil {
		tz = time.UTC
	}
	return &TimeFrame{
		From:       from.UTC(),
		To:         to.UTC(),
		Label:      label,
		BucketSize: AppropriateBucketSize(from, to),
		Tz:         tz,
	}, nil
}

// AppropriateBucketSize chooses hourly buckets up to two days, daily up to
// roughly a quarter, and monthly beyond that.
func AppropriateBucketSize(from, to time.Time) TimeFrameBucketSize {
	days := to.Sub(from).Hours() / 24
	switch {
	case days <= 2:
		return TimeFrameBucketSizeHour
	case days <= 92:
		return TimeFrameBucketSizeDay
	default:
		return TimeFrameBucketSizeMonth
	}
}

func (tf *TimeFrame) Duration() time.Duration {
	return tf.To.Sub(tf.From)
}

// Contains reports whether t falls inside the frame.
func (tf *TimeFrame) Contains(t time.Time) bool {
	return !t.Before(tf.From) && t.Before(tf.To)
}

// Previous returns the frame of equal length immediately before tf.
func (tf *TimeFrame) Previous() *TimeFrame {
	d := tf.Duration()
	return &TimeFrame{
		From:       tf.From.Add(-d),
		To:         tf.From,
		Label:      TimeFrameRangeLabelCustom,
		BucketSize: tf.BucketSize,
		Tz:         tf.Tz,
	}
}

func (tf *TimeFrame) location() *time.Location {
	if tf.Tz == nil {
		return time.UTC
	}
	return tf.Tz
}

// BucketStart returns the start of the bucket containing t, in the frame's timezone.
func (tf *TimeFrame) BucketStart(t time.Time) time.Time {
	return TruncateToBucketInTimezone(t, tf.BucketSize, tf.location())
}

func (tf *TimeFrame) nextBucket(t time.Time) time.Time {
	switch tf.BucketSize {
	case TimeFrameBucketSizeMonth:
		return t.AddDate(0, 1, 0)
	case TimeFrameBucketSizeDay:
		return t.AddDate(0, 0, 1)
	default:
		return t.Add(time.Hour)
	}
}

// maxBuckets bounds the number of points a series can have.
const maxBuckets = 1000

// Buckets lists the start of every bucket overlapping the frame.
func (tf *TimeFrame) Buckets() []time.Time {
	var buckets []time.Time
	for cur := tf.BucketStart(tf.From); cur.Before(tf.To) && len(buckets) < maxBuckets; cur = tf.nextBucket(cur) {
		buckets = append(buckets, cur)
	}
	return buckets
}

// BuildTimeSeriesPoints lays counts keyed by bucket start (Unix seconds) onto
// the full bucket grid, filling gaps with zero.
func (tf *TimeFrame) BuildTimeSeriesPoints(counts map[int64]int) []DateStat {
	buckets := tf.Buckets()
	points := make([]DateStat, len(buckets))
	for i, b := range buckets {
		points[i] = DateStat{
			Date:  b.Format(time.RFC3339),
			Count: counts[b.Unix()],
		}
	}
	return points
}

// TruncateToBucketInTimezone truncates a time to the appropriate bucket boundary in the given timezone
func TruncateToBucketInTimezone(t time.Time, bucketSize TimeFrameBucketSize, loc *time.Location) time.Time {
	localTime := t.In(loc)
	year, month, day := localTime.Year(), localTime.Month(), localTime.Day()

	switch bucketSize {
	case TimeFrameBucketSizeMonth:
		return time.Date(year, month, 1, 0, 0, 0, 0, loc)
	case TimeFrameBucketSizeDay:
		return time.Date(year, month, day, 0, 0, 0, 0, loc)
	case TimeFrameBucketSizeHour:
		return time.Date(year, month, day, localTime.Hour(), 0, 0, 0, loc)
	default:
		return localTime
	}
}
