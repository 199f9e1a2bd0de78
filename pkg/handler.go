package pkg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Handler struct {
	dashboard *Dashboard
	logger    zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*viewerSession
}

// viewerSession counts the loads in flight for one viewer. The entry is
// dropped when the count returns to zero, so only active viewers are kept.
type viewerSession struct {
	session  *Session
	inFlight int
}

func NewHandler(dashboard *Dashboard, logger zerolog.Logger) *Handler {
	return &Handler{
		dashboard: dashboard,
		logger:    logger,
		sessions:  make(map[string]*viewerSession),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// ParseQuery reads the country, metric and days parameters. A missing metric
// means cases and a missing days uses the default lookback window.
func ParseQuery(params map[string]string) (Query, error) {
	q := Query{Country: params["country"], Metric: MetricCases}
	if metric := params["metric"]; metric != "" {
		kind, err := ParseMetricKind(metric)
		if err != nil {
			return q, err
		}
		q.Metric = kind
	}
	if days := params["days"]; days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return q, fmt.Errorf("days must be a positive integer, got %q", days)
		}
		q.Days = n
	}
	return q, nil
}

// load runs q through the viewer's session when one is named, so a newer
// request from the same viewer supersedes an older one.
func (h *Handler) load(ctx context.Context, sessionID string, q Query) (*View, error) {
	if sessionID == "" {
		return h.dashboard.Load(ctx, q)
	}
	h.mu.Lock()
	viewer, ok := h.sessions[sessionID]
	if !ok {
		viewer = &viewerSession{session: NewSession(h.dashboard)}
		h.sessions[sessionID] = viewer
	}
	viewer.inFlight++
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		viewer.inFlight--
		if viewer.inFlight == 0 {
			delete(h.sessions, sessionID)
		}
	}()
	return viewer.session.Load(ctx, q)
}

// StatusFor maps a dashboard error to the HTTP status returned to the viewer.
func StatusFor(err error) int {
	var (
		notFoundErr  *NotFoundError
		transportErr *TransportError
		parseErr     *ParseError
	)
	switch {
	case errors.Is(err, ErrSuperseded):
		return http.StatusConflict
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &transportErr), errors.As(err, &parseErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) serve(ctx context.Context, params map[string]string, sessionID string) (int, interface{}) {
	q, err := ParseQuery(params)
	if err != nil {
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	}
	view, err := h.load(ctx, sessionID, q)
	if err != nil {
		status := StatusFor(err)
		h.logger.Warn().Err(err).Int("status", status).Str("country", q.Country).Msg("Dashboard request failed")
		return status, errorResponse{Error: err.Error()}
	}
	return http.StatusOK, view
}

// Lambda answers API Gateway proxy requests for the dashboard.
func (h *Handler) Lambda(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	status, body := h.serve(ctx, req.QueryStringParameters, headerValue(req.Headers, "X-Dashboard-Session"))
	payload, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{}, fmt.Errorf("failed to encode response: %w", err)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(payload),
	}, nil
}

// Router exposes the same dashboard over plain HTTP for local runs.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.logRequest)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/dashboard", func(c *gin.Context) {
		params := map[string]string{
			"country": c.Query("country"),
			"metric":  c.Query("metric"),
			"days":    c.Query("days"),
		}
		status, body := h.serve(c.Request.Context(), params, c.GetHeader("X-Dashboard-Session"))
		c.JSON(status, body)
	})
	return r
}

func headerValue(headers map[string]string, name string) string {
	for key, value := range headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

func (h *Handler) logRequest(c *gin.Context) {
	c.Next()
	h.logger.Debug().Str("method", c.Request.Method).Str("path", c.Request.URL.Path).
		Int("status", c.Writer.Status()).Msg("Handled request")
}
