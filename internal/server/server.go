package server

import (
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m-khosravi/chronicler/config"
	"github.com/m-khosravi/chronicler/internal/europeana"
	"github.com/m-khosravi/chronicler/internal/report"
	"github.com/m-khosravi/chronicler/internal/telemetry"
)

// sessionHub owns the live report controllers, one per session. Each
// controller is single-owner; the hub serializes steps per session so
// concurrent topics never share state.
type sessionHub struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	create   func() *report.Controller
}

type sessionEntry struct {
	mu         sync.Mutex
	controller *report.Controller
}

func newSessionHub(create func() *report.Controller) *sessionHub {
	return &sessionHub{sessions: map[string]*sessionEntry{}, create: create}
}

func (h *sessionHub) open() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ctrl := h.create()
	id := ctrl.Session().ID
	h.sessions[id] = &sessionEntry{controller: ctrl}
	return id
}

func (h *sessionHub) get(id string) (*sessionEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.sessions[id]
	return entry, ok
}

// New builds the HTTP API around a configured Europeana client.
func New(cfg *config.Config) (*echo.Echo, error) {
	client, err := europeana.NewClient(cfg.Europeana)
	if err != nil {
		return nil, fmt.Errorf("building europeana client: %w", err)
	}

	metrics := telemetry.New(prometheus.DefaultRegisterer)
	var extractor report.ContentExtractor
	if cfg.Report.ExtractContent {
		extractor = client
	}

	hub := newSessionHub(func() *report.Controller {
		engine := report.NewDiscoveryEngine(client, extractor, metrics)
		return report.NewController(engine, metrics)
	})

	return newWithHub(hub), nil
}

// newWithHub wires routes onto a hub; split out so tests can inject fake
// discovery backends.
func newWithHub(hub *sessionHub) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/report")
	api.POST("/sessions", func(c echo.Context) error {
		id := hub.open()
		return c.JSON(http.StatusCreated, map[string]string{"session_id": id})
	})
	api.POST("/sessions/:id/step", func(c echo.Context) error {
		entry, ok := hub.get(c.Param("id"))
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "unknown session")
		}

		var input map[string]interface{}
		if err := c.Bind(&input); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
		}

		entry.mu.Lock()
		result := entry.controller.Process(c.Request().Context(), input)
		entry.mu.Unlock()

		// Workflow-level errors ride in the payload with isError set; the
		// HTTP status stays 200 because the step itself was handled.
		return c.JSON(http.StatusOK, result)
	})

	return e
}

// Run starts the HTTP API and blocks.
func Run(cfg *config.Config) error {
	e, err := New(cfg)
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if addr == "" {
		addr = ":8080"
	}
	return e.Start(addr)
}
