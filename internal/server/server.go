package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"fichecode/internal/codec"
	"fichecode/internal/config"
	"fichecode/internal/fiche"
	"fichecode/internal/flow"
	"fichecode/internal/prompt"
	"fichecode/internal/scan"
	"fichecode/internal/urlpack"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	maxBatchSize        = 256
	batchConcurrency    = 8
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	writeTimeout        = 45 * time.Second
	idleTimeout         = 120 * time.Second
)

type Server struct {
	cfg     config.Config
	flow    *flow.Flow
	app     *echo.Echo
	address string
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, fl *flow.Flow) (*Server, error) {
	if fl == nil {
		return nil, errors.New("flow must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"request_id", v.RequestID,
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))

	srv := &Server{
		cfg:     cfg,
		flow:    fl,
		app:     e,
		address: fmt.Sprintf(":%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port)
	slog.Info("starting server", "addr", s.address)

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.GET("/scan", s.handleScanLink)
	s.app.POST("/v1/fiches/encode", s.handleEncode)
	s.app.POST("/v1/fiches/decode", s.handleDecode)
	s.app.POST("/v1/fiches/decode-batch", s.handleDecodeBatch)
	s.app.POST("/v1/scans", s.handleScanResult)
	s.app.POST("/v1/prompts/compile", s.handleCompile)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type ficheView struct {
	Fiche   fiche.Fiche         `json:"fiche"`
	Summary fiche.Summary       `json:"summary"`
	Info    []fiche.Field       `json:"info"`
	Actions []prompt.ActionLink `json:"actions"`
}

func (s *Server) view(f fiche.Fiche) ficheView {
	return ficheView{
		Fiche:   f,
		Summary: f.Summary(),
		Info:    f.Info(),
		Actions: s.flow.Actions(f),
	}
}

// handleScanLink serves the target of shared links. The query parser has
// already percent-decoded the value.
func (s *Server) handleScanLink(c echo.Context) error {
	value := c.QueryParam(urlpack.QueryParam)
	if strings.TrimSpace(value) == "" {
		return toHTTPError(urlpack.ErrNoPayload)
	}

	f, err := codec.Decode(urlpack.FromURL(value))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, s.view(f))
}

type encodeRequest struct {
	Fiche    *fiche.Fiche `json:"fiche"`
	BaseURL  string       `json:"base_url"`
	Location string       `json:"location"`
}

type encodeResponse struct {
	Payload   string `json:"payload"`
	Length    int    `json:"length"`
	URL       string `json:"url"`
	URLLength int    `json:"url_length"`
	Warning   string `json:"warning,omitempty"`
}

func (s *Server) handleEncode(c echo.Context) error {
	var req encodeRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}
	if req.Fiche == nil {
		return invalidRequest("fiche is required")
	}

	base, err := s.shareBase(c, req.BaseURL, req.Location)
	if err != nil {
		return toHTTPError(err)
	}

	shared, err := s.flow.Share(*req.Fiche, base)
	if err != nil {
		return toHTTPError(err)
	}

	resp := encodeResponse{
		Payload:   shared.Payload,
		Length:    len(shared.Payload),
		URL:       shared.Link.URL,
		URLLength: shared.Link.Length,
	}
	if shared.Link.Warning != nil {
		resp.Warning = shared.Link.Warning.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// shareBase picks the link base: explicit base, then the caller's page
// location, then configuration, then the origin of the request.
func (s *Server) shareBase(c echo.Context, base, location string) (string, error) {
	if strings.TrimSpace(base) != "" {
		return base, nil
	}
	if strings.TrimSpace(location) != "" {
		return urlpack.BaseFromLocation(location)
	}
	if s.cfg.Share.BaseURL != "" {
		return s.cfg.Share.BaseURL, nil
	}
	return c.Scheme() + "://" + c.Request().Host, nil
}

type decodeRequest struct {
	Payload string `json:"payload"`
	URL     string `json:"url"`
}

func (s *Server) handleDecode(c echo.Context) error {
	var req decodeRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	f, err := s.ficheFrom(req.Payload, req.URL, nil)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.view(f))
}

type batchRequest struct {
	Payloads []string `json:"payloads"`
}

type batchItem struct {
	Fiche *fiche.Fiche `json:"fiche,omitempty"`
	Error *errorDetail `json:"error,omitempty"`
}

func (s *Server) handleDecodeBatch(c echo.Context) error {
	var req batchRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}
	if len(req.Payloads) == 0 {
		return invalidRequest("payloads must not be empty")
	}
	if len(req.Payloads) > maxBatchSize {
		return invalidRequest(fmt.Sprintf("at most %d payloads per batch", maxBatchSize))
	}

	results, err := codec.DecodeAll(c.Request().Context(), req.Payloads, batchConcurrency)
	if err != nil {
		return toHTTPError(err)
	}

	items := make([]batchItem, len(results))
	for i, res := range results {
		if res.Err != nil {
			reqErr := classify(res.Err)
			items[i].Error = &errorDetail{Message: reqErr.Message, Type: reqErr.Type, Code: reqErr.Code}
			continue
		}
		f := res.Fiche
		items[i].Fiche = &f
	}
	return c.JSON(http.StatusOK, map[string]any{"results": items})
}

type scanRequest struct {
	Result json.RawMessage `json:"result"`
}

func (s *Server) handleScanResult(c echo.Context) error {
	var req scanRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	raw, err := scan.ParseRaw(req.Result)
	if err != nil {
		return invalidRequest(err.Error())
	}

	f, err := s.flow.FromScan(raw)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, s.view(f))
}

type compileRequest struct {
	Payload  string            `json:"payload"`
	URL      string            `json:"url"`
	Fiche    *fiche.Fiche      `json:"fiche"`
	Values   map[string]string `json:"values"`
	Extra    string            `json:"extra"`
	Template string            `json:"template"`
}

func (s *Server) handleCompile(c echo.Context) error {
	var req compileRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	f, err := s.ficheFrom(req.Payload, req.URL, req.Fiche)
	if err != nil {
		return err
	}

	var renderer prompt.Renderer = prompt.SectionRenderer{}
	if strings.TrimSpace(req.Template) != "" {
		renderer = prompt.TemplateRenderer{Template: req.Template}
	}

	return c.JSON(http.StatusOK, s.flow.CompileWith(renderer, f, req.Values, req.Extra))
}

// ficheFrom resolves the fiche a request refers to. Exactly one source must
// be given.
func (s *Server) ficheFrom(payload, link string, inline *fiche.Fiche) (fiche.Fiche, error) {
	sources := 0
	for _, present := range []bool{strings.TrimSpace(payload) != "", strings.TrimSpace(link) != "", inline != nil} {
		if present {
			sources++
		}
	}
	if sources != 1 {
		return fiche.Fiche{}, invalidRequest("exactly one of payload, url or fiche is required")
	}

	switch {
	case inline != nil:
		if err := inline.Validate(); err != nil {
			return fiche.Fiche{}, invalidRequest(fmt.Sprintf("invalid fiche: %v", err))
		}
		return *inline, nil
	case link != "":
		f, err := s.flow.FromLink(link)
		if err != nil {
			return fiche.Fiche{}, toHTTPError(err)
		}
		return f, nil
	default:
		f, err := codec.Decode(payload)
		if err != nil {
			return fiche.Fiche{}, toHTTPError(err)
		}
		return f, nil
	}
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return invalidRequest("request body is required")
		}
		return invalidRequest(fmt.Sprintf("invalid JSON payload: %v", err))
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return invalidRequest("request body must contain a single JSON object")
	}
	return nil
}

func printStartupBanner(port int) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("fichecode ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /scan?fiche=<payload>")
	fmt.Println("  POST /v1/fiches/encode")
	fmt.Println("  POST /v1/fiches/decode")
	fmt.Println("  POST /v1/fiches/decode-batch")
	fmt.Println("  POST /v1/scans")
	fmt.Println("  POST /v1/prompts/compile")
	fmt.Printf("Example:\n  curl http://%s:%d/v1/prompts/compile -H 'Content-Type: application/json' -d '{\"fiche\":{\"meta\":{\"titre\":\"Test\"},\"variables\":[{\"id\":\"x\",\"value\":\"42\"}]},\"values\":{\"x\":\"7\"}}'\n\n", host, port)
}
