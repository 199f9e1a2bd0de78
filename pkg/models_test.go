package pkg

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetricKind(t *testing.T) {
	for _, s := range []string{"cases", "deaths", "recovered", "active"} {
		kind, err := ParseMetricKind(s)
		require.NoError(t, err)
		assert.Equal(t, s, string(kind))
	}
	_, err := ParseMetricKind("critical")
	assert.Error(t, err)
}

func TestActiveFallsBackToCasesTimeline(t *testing.T) {
	assert.Equal(t, MetricCases, MetricActive.TimelineKind())
	assert.Equal(t, MetricDeaths, MetricDeaths.TimelineKind())
	assert.Equal(t, MetricRecovered, MetricRecovered.TimelineKind())
	assert.Equal(t, MetricCases, MetricCases.TimelineKind())
}

func TestMetricsCounter(t *testing.T) {
	m := Metrics{Cases: 1, Deaths: 2, Recovered: 3, Active: 4}
	assert.Equal(t, float64(1), m.Counter(MetricCases))
	assert.Equal(t, float64(2), m.Counter(MetricDeaths))
	assert.Equal(t, float64(3), m.Counter(MetricRecovered))
	assert.Equal(t, float64(4), m.Counter(MetricActive))
	assert.Equal(t, float64(0), m.Counter(MetricKind("tests")))
}

func TestDateSeriesKeepsUpstreamOrder(t *testing.T) {
	var s DateSeries
	err := json.Unmarshal([]byte(`{"12/31/20": 3, "1/1/21": 5, "1/2/21": 7}`), &s)
	require.NoError(t, err)
	assert.Equal(t, []string{"12/31/20", "1/1/21", "1/2/21"}, s.Keys)
	assert.Equal(t, float64(5), s.Values["1/1/21"])
}

func TestDateSeriesLenientValues(t *testing.T) {
	var s DateSeries
	err := json.Unmarshal([]byte(`{"1/1/21": null, "1/2/21": "12", "1/3/21": {"x": 1}, "1/4/21": 4}`), &s)
	require.NoError(t, err)
	assert.Equal(t, []string{"1/1/21", "1/2/21", "1/4/21"}, s.Keys)
	assert.Equal(t, float64(0), s.Values["1/1/21"])
	assert.Equal(t, float64(12), s.Values["1/2/21"])
	_, ok := s.Values["1/3/21"]
	assert.False(t, ok)
}

func TestDateSeriesRoundTripKeepsOrder(t *testing.T) {
	in := `{"1/3/21":3,"1/1/21":1}`
	var s DateSeries
	require.NoError(t, json.Unmarshal([]byte(in), &s))
	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestTimelineSeriesNestedForm(t *testing.T) {
	body := `{"country":"Israel","province":["mainland"],"timeline":{"cases":{"1/1/21":10},"deaths":{"1/1/21":1},"recovered":{"1/1/21":0}}}`
	var series TimelineSeries
	require.NoError(t, json.Unmarshal([]byte(body), &series))
	assert.Equal(t, "Israel", series.Country)
	assert.Equal(t, []string{"mainland"}, series.Province)
	assert.Equal(t, []string{"1/1/21"}, series.Timeline.Cases.Keys)
	assert.Equal(t, float64(1), series.Timeline.Deaths.Values["1/1/21"])
}

func TestTimelineSeriesTopLevelForm(t *testing.T) {
	body := `{"cases":{"1/1/21":10,"1/2/21":12},"deaths":{"1/1/21":1},"recovered":{}}`
	var series TimelineSeries
	require.NoError(t, json.Unmarshal([]byte(body), &series))
	assert.Equal(t, []string{"1/1/21", "1/2/21"}, series.Timeline.Cases.Keys)
	assert.Empty(t, series.Timeline.Recovered.Keys)
}

func TestTimelineFieldSelection(t *testing.T) {
	tl := Timeline{
		Cases:     DateSeries{Keys: []string{"c"}},
		Deaths:    DateSeries{Keys: []string{"d"}},
		Recovered: DateSeries{Keys: []string{"r"}},
	}
	assert.Equal(t, []string{"c"}, tl.Field(MetricCases).Keys)
	assert.Equal(t, []string{"d"}, tl.Field(MetricDeaths).Keys)
	assert.Equal(t, []string{"r"}, tl.Field(MetricRecovered).Keys)
	assert.Equal(t, []string{"c"}, tl.Field(MetricActive).Keys)
}

func TestCountryMetricsDecoding(t *testing.T) {
	body := `{"country":"Israel","countryInfo":{"_id":376,"iso2":"IL","iso3":"ISR","lat":31.5,"long":34.75,"flag":"https://disease.sh/assets/img/flags/il.png"},"cases":100,"todayCases":null,"deaths":2,"continent":"Asia","updated":1620000000000}`
	var c CountryMetrics
	require.NoError(t, json.Unmarshal([]byte(body), &c))
	assert.Equal(t, "ISR", c.CountryInfo.Iso3)
	assert.Equal(t, float64(100), c.Cases)
	assert.Equal(t, float64(0), c.TodayCases)
	assert.Equal(t, "Asia", c.Continent)
	assert.Equal(t, int64(1620000000000), c.Updated)
}
