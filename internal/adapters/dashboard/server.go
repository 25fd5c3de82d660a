// Package dashboard serves the live attention view: a small JSON API, a
// websocket feed of readings and alerts, and the Prometheus endpoint.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

type Config struct {
	Addr         string
	HistoryLimit int
}

// HistorySource returns up to n of the newest readings, oldest first.
type HistorySource interface {
	Recent(n int) []domain.Reading
}

// AlertSubmitter accepts manual test alerts.
type AlertSubmitter interface {
	Submit(alert domain.Alert) bool
}

type Deps struct {
	State    *State
	History  HistorySource
	Alerts   AlertSubmitter
	Gatherer prometheus.Gatherer
	Obs      ports.Observability
	Log      zerolog.Logger
}

type Server struct {
	cfg      Config
	state    *State
	history  HistorySource
	alerts   AlertSubmitter
	gatherer prometheus.Gatherer
	hub      *Hub
	log      zerolog.Logger
	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewServer(cfg Config, d Deps) *Server {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 480
	}
	log := d.Log.With().Str("component", "dashboard").Logger()
	return &Server{
		cfg:      cfg,
		state:    d.State,
		history:  d.History,
		alerts:   d.Alerts,
		gatherer: d.Gatherer,
		hub:      NewHub(d.Obs, log),
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// ObserveReading records an accepted reading and pushes it to listeners.
func (s *Server) ObserveReading(r domain.Reading, armed bool, episodes uint64) {
	s.state.ObserveReading(r, armed, episodes)
	s.hub.Publish("reading", r)
}

// ObserveAlert records a finished alert sequence and pushes it to listeners.
func (s *Server) ObserveAlert(res *domain.AlertResult) {
	s.state.ObserveAlert(res)
	s.hub.Publish("alert", NewAlertView(res))
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/history", s.handleHistory)
		r.Get("/alert", s.handleLastAlert)
		r.Post("/alert/test", s.handleTestAlert)
	})
	r.Get("/ws", s.handleWebSocket)
	return r
}

// Run serves until ctx is done, then shuts down within a few seconds.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("dashboard_listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n < limit {
			limit = n
		}
	}

	readings := []domain.Reading{}
	if s.history != nil {
		readings = s.history.Recent(limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"threshold": s.state.Threshold(),
		"readings":  readings,
	})
}

func (s *Server) handleLastAlert(w http.ResponseWriter, _ *http.Request) {
	res := s.state.LastAlert()
	if res == nil {
		writeError(w, http.StatusNotFound, "no alert yet")
		return
	}
	writeJSON(w, http.StatusOK, NewAlertView(res))
}

// handleTestAlert queues a manual alert built from the latest reading. It
// does not touch the trigger.
func (s *Server) handleTestAlert(w http.ResponseWriter, _ *http.Request) {
	if s.alerts == nil {
		writeError(w, http.StatusServiceUnavailable, "alerting disabled")
		return
	}

	reading, ok := s.state.LastReading()
	if !ok {
		reading = domain.Reading{Timestamp: s.now(), Status: domain.StatusNormal}
	}
	alert := domain.Alert{
		Reading:   reading,
		Threshold: s.state.Threshold(),
		Manual:    true,
		Raised:    s.now(),
	}
	if !s.alerts.Submit(alert) {
		writeError(w, http.StatusServiceUnavailable, "alert queue full")
		return
	}
	s.log.Info().Str("score", reading.Score.String()).Msg("test_alert_queued")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("ws_upgrade_failed")
		return
	}

	// Late joiners get the current status before any broadcast.
	if b, err := json.Marshal(Message{Type: "status", Payload: s.state.Snapshot()}); err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			conn.Close()
			return
		}
	}

	c := newClient(s.hub, conn)
	if !s.hub.add(c) {
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http_request")
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
