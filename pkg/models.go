package pkg

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// MetricKind selects which counter drives a view.
type MetricKind string

const (
	MetricCases     MetricKind = "cases"
	MetricDeaths    MetricKind = "deaths"
	MetricRecovered MetricKind = "recovered"
	MetricActive    MetricKind = "active"
)

var metricKinds = []MetricKind{MetricCases, MetricDeaths, MetricRecovered, MetricActive}

var metricLabels = map[MetricKind]string{
	MetricCases:     "Cases",
	MetricDeaths:    "Deaths",
	MetricRecovered: "Recovered",
	MetricActive:    "Active",
}

var metricColors = map[MetricKind]string{
	MetricCases:     "#3B82F6",
	MetricDeaths:    "#EF4444",
	MetricRecovered: "#10B981",
	MetricActive:    "#F59E0B",
}

func ParseMetricKind(s string) (MetricKind, error) {
	for _, kind := range metricKinds {
		if string(kind) == s {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// TimelineKind returns the historical field backing the metric. Upstream has
// no timeline for active cases, so active falls back to cases.
func (k MetricKind) TimelineKind() MetricKind {
	if k == MetricActive {
		return MetricCases
	}
	return k
}

func (k MetricKind) Label() string {
	return metricLabels[k]
}

func (k MetricKind) Color() string {
	return metricColors[k]
}

// Metrics holds the counters shared by the global and per country snapshots.
type Metrics struct {
	Cases                  float64 `json:"cases"`
	TodayCases             float64 `json:"todayCases"`
	Deaths                 float64 `json:"deaths"`
	TodayDeaths            float64 `json:"todayDeaths"`
	Recovered              float64 `json:"recovered"`
	TodayRecovered         float64 `json:"todayRecovered"`
	Active                 float64 `json:"active"`
	Critical               float64 `json:"critical"`
	CasesPerOneMillion     float64 `json:"casesPerOneMillion"`
	DeathsPerOneMillion    float64 `json:"deathsPerOneMillion"`
	Tests                  float64 `json:"tests"`
	TestsPerOneMillion     float64 `json:"testsPerOneMillion"`
	Population             float64 `json:"population"`
	OneCasePerPeople       float64 `json:"oneCasePerPeople"`
	OneDeathPerPeople      float64 `json:"oneDeathPerPeople"`
	OneTestPerPeople       float64 `json:"oneTestPerPeople"`
	ActivePerOneMillion    float64 `json:"activePerOneMillion"`
	RecoveredPerOneMillion float64 `json:"recoveredPerOneMillion"`
	CriticalPerOneMillion  float64 `json:"criticalPerOneMillion"`
	Updated                int64   `json:"updated"`
}

// Counter returns the value of the counter selected by kind, zero for an
// unknown kind.
func (m Metrics) Counter(kind MetricKind) float64 {
	switch kind {
	case MetricCases:
		return m.Cases
	case MetricDeaths:
		return m.Deaths
	case MetricRecovered:
		return m.Recovered
	case MetricActive:
		return m.Active
	}
	return 0
}

type GlobalMetrics struct {
	Metrics
	AffectedCountries int64 `json:"affectedCountries"`
}

type CountryInfo struct {
	ID   int64   `json:"_id"`
	Iso2 string  `json:"iso2"`
	Iso3 string  `json:"iso3"`
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
	Flag string  `json:"flag"`
}

type CountryMetrics struct {
	Country     string      `json:"country"`
	CountryInfo CountryInfo `json:"countryInfo"`
	Continent   string      `json:"continent"`
	Metrics
}

type ChartPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// DateSeries is a date keyed counter mapping that remembers the order in
// which upstream delivered its keys.
type DateSeries struct {
	Keys   []string
	Values map[string]float64
}

func (s *DateSeries) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	keys, err := objectKeys(data)
	if err != nil {
		return err
	}
	s.Keys = make([]string, 0, len(keys))
	s.Values = make(map[string]float64, len(keys))
	for _, key := range keys {
		if _, seen := s.Values[key]; seen {
			continue
		}
		value, ok := parseCounter(raw[key])
		if !ok {
			continue
		}
		s.Keys = append(s.Keys, key)
		s.Values[key] = value
	}
	return nil
}

func (s DateSeries) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, key := range s.Keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = strconv.AppendFloat(buf, s.Values[key], 'f', -1, 64)
	}
	return append(buf, '}'), nil
}

type Timeline struct {
	Cases     DateSeries `json:"cases"`
	Deaths    DateSeries `json:"deaths"`
	Recovered DateSeries `json:"recovered"`
}

// Field returns the series backing kind, after the active fallback.
func (t Timeline) Field(kind MetricKind) DateSeries {
	switch kind.TimelineKind() {
	case MetricDeaths:
		return t.Deaths
	case MetricRecovered:
		return t.Recovered
	}
	return t.Cases
}

// TimelineSeries is the historical answer for one country or the world.
// Upstream nests the date maps under "timeline" for countries and may put them
// at the top level for the worldwide query; both forms decode into Timeline.
type TimelineSeries struct {
	Country  string   `json:"country"`
	Province []string `json:"province,omitempty"`
	Timeline Timeline `json:"timeline"`
}

func (t *TimelineSeries) UnmarshalJSON(data []byte) error {
	var wire struct {
		Country  string          `json:"country"`
		Province json.RawMessage `json:"province"`
		Timeline *Timeline       `json:"timeline"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	t.Country = wire.Country
	t.Province = parseProvince(wire.Province)
	if wire.Timeline != nil {
		t.Timeline = *wire.Timeline
		return nil
	}
	return json.Unmarshal(data, &t.Timeline)
}

func parseProvince(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}
