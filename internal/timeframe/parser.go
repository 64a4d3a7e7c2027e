package timeframe

import (
	"fmt"
	"time"
)

type TimeFrameParserParams struct {
	Range    string
	FromDate string // YYYY-MM-DD, used when Range is custom or empty
	ToDate   string // YYYY-MM-DD, inclusive
	Tz       string
	// AllTimeFirstEventAt anchors the all_time range; zero falls back to one year.
	AllTimeFirstEventAt time.Time
}

type TimeFrameParser struct {
	timeProvider TimeProvider
}

func NewTimeFrameParser(timeProvider ...TimeProvider) *TimeFrameParser {
	var provider TimeProvider = &DefaultTimeProvider{}
	if len(timeProvider) > 0 && timeProvider[0] != nil {
		provider = timeProvider[0]
	}

	return &TimeFrameParser{
		timeProvider: provider,
	}
}

func (p *TimeFrameParser) ParseTimeFrame(params TimeFrameParserParams) (*TimeFrame, error) {
	tz := params.Tz
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("error loading timezone: %w", err)
	}

	now := p.timeProvider.Now(loc)
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	label := TimeFrameRangeLabel(params.Range)
	if label == "" {
		if params.FromDate != "" || params.ToDate != "" {
			label = TimeFrameRangeLabelCustom
		} else {
			label = TimeFrameRangeLabelLast7Days
		}
	}

	var from, to time.Time
	switch label {
	case TimeFrameRangeLabelToday:
		from, to = startOfToday, now
	case TimeFrameRangeLabelYesterday:
		from, to = startOfToday.AddDate(0, 0, -1), startOfToday
	case TimeFrameRangeLabelLast24Hours:
		from, to = now.Add(-24*time.Hour), now
	case TimeFrameRangeLabelLast7Days:
		from, to = startOfToday.AddDate(0, 0, -6), now
	case TimeFrameRangeLabelLast30Days:
		from, to = startOfToday.AddDate(0, 0, -29), now
	case TimeFrameRangeLabelMonthToDate:
		from, to = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc), now
	case TimeFrameRangeLabelLastMonth:
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		from, to = firstOfMonth.AddDate(0, -1, 0), firstOfMonth
	case TimeFrameRangeLabelAllTime:
		from = params.AllTimeFirstEventAt
		if from.IsZero() {
			from = startOfToday.AddDate(-1, 0, 0)
		}
		to = now
	case TimeFrameRangeLabelCustom:
		from, to, err = p.parseCustomDateRange(params, loc, startOfToday, now)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown range %q", params.Range)
	}

	// Include the current second so events arriving right now are counted.
	if !to.Before(now) {
		to = now.Add(time.Second)
	}

	return NewTimeFrame(from, to, label, loc)
}

func (p *TimeFrameParser) parseCustomDateRange(params TimeFrameParserParams, loc *time.Location, startOfToday, now time.Time) (time.Time, time.Time, error) {
	from := startOfToday.AddDate(0, 0, -29)
	to := now

	if params.FromDate != "" {
		d, err := time.ParseInLocation("2006-01-02", params.FromDate, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'from' date: %w", err)
		}
		from = d
	}

	if params.ToDate != "" {
		d, err := time.ParseInLocation("2006-01-02", params.ToDate, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'to' date: %w", err)
		}
		to = d.AddDate(0, 0, 1)
		if to.After(now) {
			to = now
		}
	}

	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("'from' date must not be after 'to' date")
	}
	return from, to, nil
}
