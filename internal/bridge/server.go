package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dgnsrekt/ttstalker/internal/metrics"
	"github.com/dgnsrekt/ttstalker/internal/tts"
	"github.com/dgnsrekt/ttstalker/internal/ttypes"
)

// Speaker is the part of tts.Talker the HTTP API needs.
type Speaker interface {
	Say(ctx context.Context, text, lang string) (tts.Result, error)
	Length(ctx context.Context, text, lang string) float64
	Signal(sig ttypes.ControlSignal)
}

// SayRequest is the body of POST /say.
type SayRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

// SayResponse reports a finished cycle.
type SayResponse struct {
	CycleID     string  `json:"cycle_id"`
	Interrupted bool    `json:"interrupted"`
	Dispatched  int     `json:"dispatched"`
	Elapsed     float64 `json:"elapsed"`
}

// LengthResponse is the body returned by GET /length.
type LengthResponse struct {
	Length float64 `json:"length"`
}

// ControlRequest is the body of POST /control.
type ControlRequest struct {
	Signal string `json:"signal"`
}

// LengthRequest is the query of GET /length.
type LengthRequest struct {
	Text string `query:"text"`
	Lang string `query:"lang"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server is the HTTP front of a Speaker.
type Server struct {
	speaker Speaker
	hub     *Hub
	echo    *echo.Echo
}

// NewServer creates the API. hub may be nil, in which case /ws is not served.
func NewServer(speaker Speaker, hub *Hub) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug("Request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	s := &Server{speaker: speaker, hub: hub, echo: e}
	e.POST("/say", s.handleSay)
	e.GET("/length", s.handleLength)
	e.POST("/control", s.handleControl)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	if hub != nil {
		e.GET("/ws", echo.WrapHandler(hub))
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.echo.Server.ReadHeaderTimeout = 5 * time.Second
	s.echo.Server.BaseContext = func(net.Listener) context.Context { return ctx }

	errc := make(chan error, 1)
	go func() {
		log.Info("Listening", "addr", addr)
		errc <- s.echo.Start(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.hub != nil {
		s.hub.Close()
	}
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// handleSay speaks synchronously. A client that goes away interrupts the
// cycle.
func (s *Server) handleSay(c echo.Context) error {
	var req SayRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body: " + bindMessage(err)})
	}

	res, err := s.speaker.Say(c.Request().Context(), req.Text, req.Lang)
	if err != nil {
		var ttsErr *tts.TTSError
		if errors.As(err, &ttsErr) && ttsErr.IsFatal() {
			log.Error("Speech needs operator attention", "error", err)
		} else {
			log.Warn("Say failed", "error", err)
		}
		return c.JSON(statusFor(err), errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, SayResponse{
		CycleID:     res.CycleID,
		Interrupted: res.Interrupted,
		Dispatched:  res.Dispatched,
		Elapsed:     res.Elapsed.Seconds(),
	})
}

func (s *Server) handleLength(c echo.Context) error {
	var req LengthRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid query: " + bindMessage(err)})
	}
	return c.JSON(http.StatusOK, LengthResponse{Length: s.speaker.Length(c.Request().Context(), req.Text, req.Lang)})
}

func (s *Server) handleControl(c echo.Context) error {
	var req ControlRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body: " + bindMessage(err)})
	}
	sig, err := ttypes.ParseControlSignal(req.Signal)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	s.speaker.Signal(sig)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleHealth(c echo.Context) error {
	clients := 0
	if s.hub != nil {
		clients = s.hub.Clients()
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ok", "clients": clients})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tts.ErrDisabled), errors.Is(err, tts.ErrNoEngine):
		return http.StatusServiceUnavailable
	case errors.Is(err, tts.ErrEmptyText), errors.Is(err, tts.ErrUnknownLanguage):
		return http.StatusBadRequest
	case errors.Is(err, tts.ErrSynthesisFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return statusClientClosed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// statusClientClosed is nginx's code for a client that went away.
const statusClientClosed = 499

// bindMessage unwraps echo's binding error to the decoder message.
func bindMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return fmt.Sprint(he.Message)
	}
	return err.Error()
}
