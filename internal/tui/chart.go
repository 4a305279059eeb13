package tui

import (
	"math"
	"strconv"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/couchcryptid/quake-watch/internal/domain"
)

// magnitudeBuckets counts records per whole magnitude: index 0 holds
// everything below 1, the last index holds 9 and above.
func magnitudeBuckets(records []domain.Record) [10]int {
	var buckets [10]int
	for _, r := range records {
		i := int(math.Floor(r.Magnitude))
		i = max(0, min(i, len(buckets)-1))
		buckets[i]++
	}
	return buckets
}

func bucketLabel(i int) string {
	switch i {
	case 0:
		return "<1"
	case 9:
		return "9+"
	default:
		return strconv.Itoa(i)
	}
}

// renderMagnitudeChart draws the distribution of the current results.
func renderMagnitudeChart(records []domain.Record, width, height int) string {
	if len(records) == 0 {
		return helpStyle.Render("No data available")
	}
	buckets := magnitudeBuckets(records)

	bc := barchart.New(max(width, 30), max(height, 4),
		barchart.WithBarGap(1),
		barchart.WithBarWidth(2),
	)
	for i, n := range buckets {
		color := magnitudeColor(float64(i))
		bc.Push(barchart.BarData{
			Label: bucketLabel(i),
			Values: []barchart.BarValue{{
				Name:  bucketLabel(i),
				Value: float64(n),
				Style: lipgloss.NewStyle().Foreground(color).Background(color),
			}},
		})
	}
	bc.Draw()
	return bc.View()
}
