// Package api exposes the read-only query surface over HTTP plus operator
// endpoints for job statistics and metrics.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"DealRadar/internal/domain"
	"DealRadar/internal/infrastructure/submit"
	"DealRadar/internal/metrics"
	"DealRadar/internal/ports"
)

// Server wraps echo with the engine's handlers.
type Server struct {
	echo        *echo.Echo
	index       ports.OfferIndex
	history     ports.PriceHistory
	scheduler   ports.Scheduler
	submissions *submit.Queue
	logger      *slog.Logger
}

// New wires the routes. submissions may be nil when intake is disabled.
func New(index ports.OfferIndex, history ports.PriceHistory, scheduler ports.Scheduler, reg *metrics.Registry, submissions *submit.Queue, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:        e,
		index:       index,
		history:     history,
		scheduler:   scheduler,
		submissions: submissions,
		logger:      logger,
	}

	e.GET("/healthz", s.health)
	if reg != nil {
		e.GET("/metrics", echo.WrapHandler(reg.Handler()))
	}

	deals := e.Group("/api/deals")
	deals.GET("/search", s.search)
	deals.GET("/top", s.top)
	deals.GET("/category/:category", s.byCategory)
	deals.GET("/:fingerprint", s.byFingerprint)
	if history != nil {
		deals.GET("/:fingerprint/prediction", s.prediction)
	}

	e.GET("/api/jobs", s.jobs)
	e.POST("/api/jobs/:name/trigger", s.trigger)
	if submissions != nil {
		e.POST("/api/submissions", s.submitOffer)
	}

	return s
}

// Start blocks serving on addr until Shutdown.
func (s *Server) Start(addr string) error {
	err := s.echo.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"offers": s.index.Len(),
	})
}

// search returns score-ordered matches; an empty or stale index yields an
// empty list, never an error.
func (s *Server) search(c echo.Context) error {
	query := c.QueryParam("q")
	category := c.QueryParam("category")
	return c.JSON(http.StatusOK, offersPayload(s.index.Search(query, category)))
}

func (s *Server) top(c echo.Context) error {
	n := 20
	if raw := c.QueryParam("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "n must be a non-negative integer")
		}
		n = parsed
	}
	return c.JSON(http.StatusOK, offersPayload(s.index.TopN(n)))
}

func (s *Server) byCategory(c echo.Context) error {
	category := c.Param("category")
	if unescaped, err := url.PathUnescape(category); err == nil {
		category = unescaped
	}
	return c.JSON(http.StatusOK, offersPayload(s.index.ByCategory(category)))
}

// byFingerprint unescapes the path segment itself: fingerprints contain
// pipes, which well-behaved clients percent-encode.
func (s *Server) byFingerprint(c echo.Context) error {
	fp := c.Param("fingerprint")
	if unescaped, err := url.PathUnescape(fp); err == nil {
		fp = unescaped
	}
	offer, ok := s.index.ByFingerprint(fp)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no offer for fingerprint")
	}
	return c.JSON(http.StatusOK, offer)
}

// prediction answers the forecast view for an indexed fingerprint.
func (s *Server) prediction(c echo.Context) error {
	fp := c.Param("fingerprint")
	if unescaped, err := url.PathUnescape(fp); err == nil {
		fp = unescaped
	}
	if _, ok := s.index.ByFingerprint(fp); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no offer for fingerprint")
	}
	return c.JSON(http.StatusOK, s.history.Predict(fp, time.Now().UTC()))
}

func (s *Server) jobs(c echo.Context) error {
	return c.JSON(http.StatusOK, s.scheduler.Jobs())
}

func (s *Server) trigger(c echo.Context) error {
	name := c.Param("name")
	if !s.scheduler.Trigger(name) {
		return echo.NewHTTPError(http.StatusConflict, "job unknown or already running")
	}
	return c.JSON(http.StatusAccepted, map[string]string{"triggered": name})
}

type submissionRequest struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	CurrentPrice  float64 `json:"currentPrice"`
	OriginalPrice float64 `json:"originalPrice"`
	Currency      string  `json:"currency"`
	Merchant      string  `json:"merchant"`
	Category      string  `json:"category"`
	Condition     string  `json:"condition"`
}

func (s *Server) submitOffer(c echo.Context) error {
	var req submissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid submission body")
	}
	if req.Title == "" || req.CurrentPrice < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "title and a non-negative price are required")
	}

	id, err := s.submissions.Submit(submit.Submission{
		Title:         req.Title,
		URL:           req.URL,
		CurrentPrice:  req.CurrentPrice,
		OriginalPrice: req.OriginalPrice,
		Currency:      req.Currency,
		Merchant:      req.Merchant,
		Category:      req.Category,
		Condition:     domain.Condition(req.Condition),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]string{"id": id})
}

// offersPayload guarantees a JSON array even for zero results.
func offersPayload(offers []domain.ScoredOffer) []domain.ScoredOffer {
	if offers == nil {
		return []domain.ScoredOffer{}
	}
	return offers
}
