package pkg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
)

// Client reads the disease.sh statistics API. Every call performs exactly one
// GET and never retries.
type Client struct {
	baseURL      string
	lookbackDays int
	client       *http.Client
	logger       zerolog.Logger
}

func NewClient(cfg *Config, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:      cfg.BaseURL,
		lookbackDays: cfg.LookbackDays,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger.With().Str("prefix", "disease.sh").Logger(),
	}
}

func (api *Client) GlobalMetrics(ctx context.Context) (*GlobalMetrics, error) {
	var metrics GlobalMetrics
	if err := api.get(ctx, "global metrics", "/all", nil, &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}

func (api *Client) Countries(ctx context.Context) ([]CountryMetrics, error) {
	var countries []CountryMetrics
	if err := api.get(ctx, "countries", "/countries", nil, &countries); err != nil {
		return nil, err
	}
	if countries == nil {
		countries = []CountryMetrics{}
	}
	return countries, nil
}

func (api *Client) Country(ctx context.Context, name string) (*CountryMetrics, error) {
	var metrics CountryMetrics
	err := api.get(ctx, "country", "/countries/"+url.PathEscape(name), nil, &metrics)
	if err != nil {
		return nil, notFound(name, err)
	}
	return &metrics, nil
}

// Historical fetches the last days of the timeline for country, or for the
// whole world when country is empty, "all" or "Global". A non positive days
// uses the configured lookback window.
func (api *Client) Historical(ctx context.Context, country string, days int) (*TimelineSeries, error) {
	if days <= 0 {
		days = api.lookbackDays
	}
	query := url.Values{"lastdays": []string{strconv.Itoa(days)}}
	if IsGlobal(country) {
		var series TimelineSeries
		if err := api.get(ctx, "historical", "/historical/all", query, &series); err != nil {
			return nil, err
		}
		return &series, nil
	}
	var series TimelineSeries
	err := api.get(ctx, "historical", "/historical/"+url.PathEscape(country), query, &series)
	if err != nil {
		return nil, notFound(country, err)
	}
	return &series, nil
}

func (api *Client) get(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	reqURL := api.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &TransportError{Op: op, URL: reqURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	api.logger.Debug().Str("op", op).Str("url", reqURL).Msg("Requesting upstream")
	resp, err := api.client.Do(req)
	if err != nil {
		api.logger.Err(err).Str("op", op).Str("url", reqURL).Msg("Upstream request failed")
		return &TransportError{Op: op, URL: reqURL, Err: err}
	}
	defer resp.Body.Close() // nolint: errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		api.logger.Error().Str("op", op).Str("url", reqURL).Int("status", resp.StatusCode).
			Str("resp", string(body)).Msg("Error response from upstream")
		return &TransportError{
			Op:         op,
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP error! Status: %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		api.logger.Err(err).Str("op", op).Str("url", reqURL).Msg("Failed to decode upstream response")
		return &ParseError{Op: op, Err: err}
	}
	return nil
}

func notFound(country string, err error) error {
	var transportErr *TransportError
	if errors.As(err, &transportErr) && transportErr.StatusCode == http.StatusNotFound {
		return &NotFoundError{Country: country, Err: err}
	}
	return err
}
