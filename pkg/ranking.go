package pkg

import "sort"

const TopCountriesLimit = 10

// TopCountries returns the countries with the largest counter for kind,
// descending. Equal values keep their input order.
func TopCountries(countries []CountryMetrics, kind MetricKind) []ChartPoint {
	ranked := make([]CountryMetrics, len(countries))
	copy(ranked, countries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Counter(kind) > ranked[j].Counter(kind)
	})
	if len(ranked) > TopCountriesLimit {
		ranked = ranked[:TopCountriesLimit]
	}
	points := make([]ChartPoint, 0, len(ranked))
	for _, country := range ranked {
		points = append(points, ChartPoint{Name: country.Country, Value: country.Counter(kind)})
	}
	return points
}
