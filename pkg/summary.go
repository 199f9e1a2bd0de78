package pkg

import (
	"math"

	"github.com/dustin/go-humanize"
)

type DeltaDirection string

const (
	DeltaUp   DeltaDirection = "up"
	DeltaDown DeltaDirection = "down"
)

type Card struct {
	Title     string         `json:"title"`
	Metric    MetricKind     `json:"metric"`
	Value     float64        `json:"value"`
	Formatted string         `json:"formatted"`
	Delta     *float64       `json:"delta,omitempty"`
	DeltaText string         `json:"deltaText,omitempty"`
	Direction DeltaDirection `json:"direction,omitempty"`
	Color     string         `json:"color"`
}

// Cards builds the four headline cards. Active cases carry no daily delta.
func Cards(m Metrics) []Card {
	return []Card{
		newCard("Total Cases", MetricCases, m.Cases, &m.TodayCases),
		newCard("Active Cases", MetricActive, m.Active, nil),
		newCard("Deaths", MetricDeaths, m.Deaths, &m.TodayDeaths),
		newCard("Recovered", MetricRecovered, m.Recovered, &m.TodayRecovered),
	}
}

func newCard(title string, kind MetricKind, value float64, delta *float64) Card {
	card := Card{
		Title:     title,
		Metric:    kind,
		Value:     value,
		Formatted: formatCount(value),
		Color:     kind.Color(),
	}
	if delta == nil {
		return card
	}
	d := *delta
	card.Delta = &d
	card.DeltaText = formatCount(math.Abs(d))
	switch {
	case d > 0:
		card.Direction = DeltaUp
	case d < 0:
		card.Direction = DeltaDown
	}
	return card
}

func formatCount(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1<<62 {
		return humanize.Comma(int64(v))
	}
	return humanize.Commaf(v)
}

// SummaryPoints is the pie breakdown of the current snapshot.
func SummaryPoints(m Metrics) []ChartPoint {
	return []ChartPoint{
		{Name: MetricCases.Label(), Value: m.Cases},
		{Name: MetricDeaths.Label(), Value: m.Deaths},
		{Name: MetricRecovered.Label(), Value: m.Recovered},
		{Name: MetricActive.Label(), Value: m.Active},
	}
}
