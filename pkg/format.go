package pkg

import "time"

const (
	upstreamDateLayout = "1/2/06"
	chartDateLayout    = "1/2/2006"
)

// FormatHistorical turns the selected timeline field into chart points, one
// per date key in upstream order. Keys are never sorted.
func FormatHistorical(series *TimelineSeries, kind MetricKind) []ChartPoint {
	if series == nil {
		return []ChartPoint{}
	}
	field := series.Timeline.Field(kind)
	points := make([]ChartPoint, 0, len(field.Keys))
	for _, key := range field.Keys {
		value, ok := field.Values[key]
		if !ok {
			continue
		}
		points = append(points, ChartPoint{Name: formatDateLabel(key), Value: value})
	}
	return points
}

func formatDateLabel(key string) string {
	date, err := time.Parse(upstreamDateLayout, key)
	if err != nil {
		return key
	}
	return date.Format(chartDateLayout)
}
