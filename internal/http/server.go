// Package http expone la superficie de consulta de una instancia: health
// checks, métricas y lectura de seats. Ninguna mutación entra por acá; los
// rearrangements son API de proceso, no de red.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dropDatabas3/escrowcore/internal/engine"
	"github.com/dropDatabas3/escrowcore/internal/observability/logger"
)

// Server es el server HTTP de solo lectura sobre una instancia.
type Server struct {
	addr string
	srv  *http.Server
	log  *zap.Logger
}

// New arma el router y el server. El handler de métricas viene ya registrado
// (RegisterMetrics).
func New(addr string, inst *engine.Instance, metricsHandler http.Handler) *Server {
	log := logger.Named("http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	h := &handlers{inst: inst}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", h.readyz)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/seats", h.listSeats)
		r.Get("/seats/{seatID}", h.getSeat)
	})

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Handler expone el router, para montarlo en tests o detrás de otro server.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start bloquea sirviendo hasta que Stop sea llamado.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.addr))
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop apaga el server de forma ordenada.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// requestLogger loguea cada request con los campos estándar.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("request",
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.Status(ww.Status()),
				logger.Duration(time.Since(start)),
			)
			observeRequest(r.Method, r.URL.Path, ww.Status(), time.Since(start))
		})
	}
}
