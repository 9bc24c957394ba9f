package insightsservice

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"
)

// GenerateTrendChart renders a PNG line chart of total daily points across
// all leaderboard entries in the window.
func GenerateTrendChart(entries []LeaderboardEntry) ([]byte, error) {
	totals := make(map[string]int)
	for _, entry := range entries {
		for _, day := range entry.DailyActivity {
			totals[day.Date] += day.Points
		}
	}
	if len(totals) == 0 {
		return nil, fmt.Errorf("no activity in window to chart")
	}

	dates := make([]string, 0, len(totals))
	for date := range totals {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	xValues := make([]time.Time, 0, len(dates))
	yValues := make([]float64, 0, len(dates))
	for _, date := range dates {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("bad date in daily series: %w", err)
		}
		xValues = append(xValues, day)
		yValues = append(yValues, float64(totals[date]))
	}

	graph := chart.Chart{
		Width:  800,
		Height: 400,
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01-02"),
		},
		YAxis: chart.YAxis{
			Name: "Points",
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Daily Points",
				XValues: xValues,
				YValues: yValues,
				Style: chart.Style{
					StrokeWidth: 2,
					DotWidth:    3,
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render trend chart: %w", err)
	}
	return buf.Bytes(), nil
}
