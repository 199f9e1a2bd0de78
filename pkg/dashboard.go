package pkg

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Source is the set of upstream reads a dashboard needs. *Client satisfies it.
type Source interface {
	GlobalMetrics(ctx context.Context) (*GlobalMetrics, error)
	Countries(ctx context.Context) ([]CountryMetrics, error)
	Country(ctx context.Context, name string) (*CountryMetrics, error)
	Historical(ctx context.Context, country string, days int) (*TimelineSeries, error)
}

// Archiver persists a daily snapshot of the per country metrics.
type Archiver interface {
	ArchiveCountries(ctx context.Context, runDate string, countries []CountryMetrics) error
}

// Query is the selection driving one dashboard load.
type Query struct {
	Country string     `json:"country"`
	Metric  MetricKind `json:"metric"`
	Days    int        `json:"days"`
}

func (q Query) normalize(defaultDays int) Query {
	q.Country = strings.TrimSpace(q.Country)
	if IsGlobal(q.Country) {
		q.Country = "Global"
	}
	if q.Metric == "" {
		q.Metric = MetricCases
	}
	if q.Days <= 0 {
		q.Days = defaultDays
	}
	return q
}

type Chart struct {
	Title  string       `json:"title"`
	Color  string       `json:"color"`
	Type   string       `json:"type"`
	Points []ChartPoint `json:"points"`
}

// CountryOption is one entry of the country selector. Flag is empty for the
// worldwide entry, which is drawn with a globe.
type CountryOption struct {
	Name   string `json:"name"`
	Flag   string `json:"flag"`
	Global bool   `json:"global,omitempty"`
}

type MetricOption struct {
	Value MetricKind `json:"value"`
	Label string     `json:"label"`
	Color string     `json:"color"`
}

var globalOption = CountryOption{Name: "Global", Global: true}

// MetricOptions lists the selectable metrics in display order.
func MetricOptions() []MetricOption {
	options := make([]MetricOption, 0, len(metricKinds))
	for _, kind := range metricKinds {
		options = append(options, MetricOption{Value: kind, Label: kind.Label(), Color: kind.Color()})
	}
	return options
}

// CountryOptions lists the worldwide entry followed by the countries in
// upstream order.
func CountryOptions(countries []CountryMetrics) []CountryOption {
	options := make([]CountryOption, 0, len(countries)+1)
	options = append(options, globalOption)
	for _, c := range countries {
		options = append(options, CountryOption{Name: c.Country, Flag: c.CountryInfo.Flag})
	}
	return options
}

type View struct {
	Query        Query           `json:"query"`
	Selected     CountryOption   `json:"selected"`
	Countries    []CountryOption `json:"countries"`
	Metrics      []MetricOption  `json:"metrics"`
	Cards        []Card          `json:"cards"`
	History      Chart           `json:"history"`
	TopCountries Chart           `json:"topCountries"`
	Summary      Chart           `json:"summary"`
	Current      Metrics         `json:"current"`
}

type Dashboard struct {
	source       Source
	archive      Archiver
	lookbackDays int
	logger       zerolog.Logger
	now          func() time.Time

	mu   sync.Mutex
	runs map[string]archiveRun
}

const (
	archiveRetryInterval = 15 * time.Minute
	archiveTimeout       = time.Minute
)

// archiveRun tracks the archive of one run date.
type archiveRun struct {
	inFlight bool
	done     bool
	failedAt time.Time
}

// NewDashboard builds a dashboard over source. archive may be nil.
func NewDashboard(source Source, archive Archiver, lookbackDays int, logger zerolog.Logger) *Dashboard {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &Dashboard{
		source:       source,
		archive:      archive,
		lookbackDays: lookbackDays,
		logger:       logger,
		now:          time.Now,
		runs:         make(map[string]archiveRun),
	}
}

// Load fetches the current snapshot, the country list and the history
// concurrently and assembles the charts. The first failure cancels the other
// requests and is returned unchanged.
func (d *Dashboard) Load(ctx context.Context, q Query) (*View, error) {
	q = q.normalize(d.lookbackDays)

	var (
		current   Metrics
		selected  CountryOption = globalOption
		countries []CountryMetrics
		history   *TimelineSeries
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if q.Country == "Global" {
			global, err := d.source.GlobalMetrics(gctx)
			if err != nil {
				return err
			}
			current = global.Metrics
			return nil
		}
		country, err := d.source.Country(gctx, q.Country)
		if err != nil {
			return err
		}
		current = country.Metrics
		selected = CountryOption{Name: q.Country, Flag: country.CountryInfo.Flag}
		return nil
	})
	g.Go(func() error {
		var err error
		countries, err = d.source.Countries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = d.source.Historical(gctx, q.Country, q.Days)
		return err
	})
	if err := g.Wait(); err != nil {
		d.logger.Err(err).Str("country", q.Country).Str("metric", string(q.Metric)).Int("days", q.Days).
			Msg("Failed to load dashboard")
		return nil, err
	}

	d.archiveCountries(ctx, countries)

	label := q.Metric.Label()
	return &View{
		Query:     q,
		Selected:  selected,
		Countries: CountryOptions(countries),
		Metrics:   MetricOptions(),
		Cards:     Cards(current),
		Current:   current,
		History: Chart{
			Title:  fmt.Sprintf("%s over time", label),
			Color:  q.Metric.Color(),
			Type:   "area",
			Points: FormatHistorical(history, q.Metric),
		},
		TopCountries: Chart{
			Title:  fmt.Sprintf("Top %d Countries by %s", TopCountriesLimit, label),
			Color:  q.Metric.Color(),
			Type:   "bar",
			Points: TopCountries(countries, q.Metric),
		},
		Summary: Chart{
			Title:  fmt.Sprintf("%s Summary", q.Country),
			Color:  "#6366F1",
			Type:   "pie",
			Points: SummaryPoints(current),
		},
	}, nil
}

// archiveCountries stores at most one snapshot per day. Only one load runs
// the archive at a time and the others skip it. A failed attempt is retried
// by a later load once archiveRetryInterval has passed.
func (d *Dashboard) archiveCountries(ctx context.Context, countries []CountryMetrics) {
	if d.archive == nil {
		return
	}
	now := d.now()
	runDate := now.UTC().Format("2006-01-02")

	d.mu.Lock()
	run := d.runs[runDate]
	if run.done || run.inFlight || (!run.failedAt.IsZero() && now.Sub(run.failedAt) < archiveRetryInterval) {
		d.mu.Unlock()
		return
	}
	run.inFlight = true
	d.runs = map[string]archiveRun{runDate: run}
	d.mu.Unlock()

	// a superseded viewer must not abort the shared archive
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	err := d.archive.ArchiveCountries(actx, runDate, countries)
	cancel()

	d.mu.Lock()
	defer d.mu.Unlock()
	run.inFlight = false
	if err != nil {
		d.logger.Err(err).Str("current_run", runDate).Msg("Failed to archive country snapshots")
		run.failedAt = d.now()
	} else {
		run.done = true
	}
	if _, ok := d.runs[runDate]; ok {
		d.runs[runDate] = run
	}
}

// Session serialises the loads of a single viewer. Starting a load cancels
// the one in flight, and only the most recent load may return a view.
type Session struct {
	dashboard *Dashboard

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func NewSession(dashboard *Dashboard) *Session {
	return &Session{dashboard: dashboard}
}

func (s *Session) Load(ctx context.Context, q Query) (*View, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.seq++
	seq := s.seq
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	view, err := s.dashboard.Load(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq != seq {
		return nil, ErrSuperseded
	}
	s.cancel = nil
	return view, err
}
