package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/incident-integrator/internal/export"
	"horse.fit/incident-integrator/internal/globaltime"
	"horse.fit/incident-integrator/internal/incident"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type Server struct {
	store  Store
	logger zerolog.Logger
	opts   Options
}

type incidentFilter struct {
	Source   string
	State    string
	Bias     string
	Year     int
	Page     int
	PageSize int
}

type incidentItem struct {
	Date                  string   `json:"date,omitempty"`
	State                 string   `json:"state,omitempty"`
	County                string   `json:"county,omitempty"`
	City                  string   `json:"city,omitempty"`
	Latitude              *float64 `json:"latitude,omitempty"`
	Longitude             *float64 `json:"longitude,omitempty"`
	BiasMotivation        string   `json:"bias_motivation,omitempty"`
	BiasMotivationCleaned string   `json:"bias_motivation_cleaned"`
	Source                string   `json:"source"`
	Tier                  string   `json:"tier"`
	IncidentID            string   `json:"incident_id,omitempty"`
	OffenseType           string   `json:"offense_type,omitempty"`
	VictimType            string   `json:"victim_type,omitempty"`
	Description           string   `json:"description,omitempty"`
	Verified              bool     `json:"verified"`
	IncidentsCorrected    float64  `json:"incidents_corrected"`
}

func NewServer(store Store, logger zerolog.Logger, opts Options) *Server {
	if strings.TrimSpace(opts.Host) == "" {
		opts.Host = "0.0.0.0"
	}
	if opts.Port <= 0 {
		opts.Port = 8090
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{store: store, logger: logger, opts: opts}
}

// Handler builds the echo router without binding a listener.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Info()
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/report", s.handleReport)
	api.GET("/incidents", s.handleIncidents)
	return e
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.Handler()
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("integrator api started")
	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("integrator api stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if text, ok := he.Message.(string); ok && strings.TrimSpace(text) != "" {
			message = text
		} else if text := http.StatusText(status); text != "" {
			message = text
		}
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "integrator",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleReport(c echo.Context) error {
	r, err := s.store.Report()
	if errors.Is(err, export.ErrNoOutput) {
		return failNotFound(c, "No integration report available")
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("load report failed")
		return internalError(c, "Failed to load report")
	}
	return success(c, r)
}

func (s *Server) handleIncidents(c echo.Context) error {
	filter, fieldErrors := parseIncidentFilter(c)
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	records, err := s.store.Incidents()
	if errors.Is(err, export.ErrNoOutput) {
		return failNotFound(c, "No integrated incidents available")
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("load incidents failed")
		return internalError(c, "Failed to load incidents")
	}

	matched := make([]incident.Record, 0, len(records))
	for _, rec := range records {
		if filter.matches(rec) {
			matched = append(matched, rec)
		}
	}

	total := len(matched)
	start := min((filter.Page-1)*filter.PageSize, total)
	end := min(start+filter.PageSize, total)
	items := make([]incidentItem, 0, end-start)
	for _, rec := range matched[start:end] {
		items = append(items, toIncidentItem(rec))
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + filter.PageSize - 1) / filter.PageSize
	}

	return success(c, map[string]any{
		"items": items,
		"pagination": map[string]any{
			"page":        filter.Page,
			"page_size":   filter.PageSize,
			"total_items": total,
			"total_pages": totalPages,
		},
		"filters": map[string]any{
			"source": filter.Source,
			"state":  filter.State,
			"bias":   filter.Bias,
			"year":   filter.Year,
		},
	})
}

func parseIncidentFilter(c echo.Context) (incidentFilter, map[string]string) {
	fieldErrors := map[string]string{}

	page, err := parsePositiveInt(c.QueryParam("page"), 1, 1, 1_000_000)
	if err != nil {
		fieldErrors["page"] = err.Error()
	}
	pageSize, err := parsePositiveInt(c.QueryParam("page_size"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		fieldErrors["page_size"] = err.Error()
	}
	year, err := parsePositiveInt(c.QueryParam("year"), 0, 1900, 2200)
	if err != nil {
		fieldErrors["year"] = err.Error()
	}

	state := strings.ToUpper(strings.TrimSpace(c.QueryParam("state")))
	if state != "" && len(state) != 2 {
		fieldErrors["state"] = "must be a two-letter code"
	}

	return incidentFilter{
		Source:   strings.ToUpper(strings.TrimSpace(c.QueryParam("source"))),
		State:    state,
		Bias:     strings.ToUpper(strings.TrimSpace(c.QueryParam("bias"))),
		Year:     year,
		Page:     page,
		PageSize: pageSize,
	}, fieldErrors
}

func (f incidentFilter) matches(rec incident.Record) bool {
	if f.Source != "" && !strings.EqualFold(rec.Source, f.Source) {
		return false
	}
	if f.State != "" && rec.State != f.State {
		return false
	}
	if f.Bias != "" && rec.BiasMotivationCleaned != f.Bias {
		return false
	}
	if f.Year != 0 && rec.Year() != f.Year {
		return false
	}
	return true
}

func toIncidentItem(rec incident.Record) incidentItem {
	item := incidentItem{
		Date:                  rec.DateString(),
		State:                 rec.State,
		County:                rec.County,
		City:                  rec.City,
		BiasMotivation:        rec.BiasMotivationRaw,
		BiasMotivationCleaned: rec.BiasMotivationCleaned,
		Source:                rec.Source,
		Tier:                  string(rec.Tier),
		IncidentID:            rec.IncidentID,
		OffenseType:           rec.OffenseType,
		VictimType:            rec.VictimType,
		Description:           rec.Description,
		Verified:              rec.Verified,
		IncidentsCorrected:    rec.IncidentsCorrected,
	}
	if rec.Coordinates != nil {
		lat, lon := rec.Coordinates.Lat, rec.Coordinates.Lon
		item.Latitude, item.Longitude = &lat, &lon
	}
	return item
}

// parsePositiveInt returns defaultValue for an empty parameter; the
// default itself is not range-checked.
func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
