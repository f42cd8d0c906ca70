// Package api assembles the thin HTTP surface around the signaling
// core: the WebSocket upgrade route, health and metrics endpoints, and
// the out-of-budget CRUD (contacts, chat history) that the core consumes
// from external collaborators but doesn't own.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/snarg/signalhub/internal/config"
	"github.com/snarg/signalhub/internal/hub"
	"github.com/snarg/signalhub/internal/store"
)

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

type ServerOptions struct {
	Config    *config.Config
	Hub       *hub.Hub
	DB        HealthChecker
	Contacts  store.ContactStore
	Sink      store.PersistenceSink
	Collector prometheus.Collector
	Version   string
	StartTime time.Time
	Log       zerolog.Logger
}

func NewServer(opts ServerOptions) *Server {
	r := chi.NewRouter()

	var corsOrigins []string
	if opts.Config.CORSOrigins != "" {
		for _, o := range strings.Split(opts.Config.CORSOrigins, ",") {
			if s := strings.TrimSpace(o); s != "" {
				corsOrigins = append(corsOrigins, s)
			}
		}
	}

	r.Use(RequestID)
	r.Use(CORSWithOrigins(corsOrigins))
	r.Use(Recoverer)
	r.Use(Logger(opts.Log))

	// The WebSocket upgrade is its own long-lived connection, not a
	// discrete request — mounted ahead of the REST rate limiter and body
	// size cap, which apply to the CRUD surface only.
	NewWebSocketHandler(opts.Hub, opts.Log).Routes(r)

	health := NewHealthHandler(opts.DB, opts.Hub.Calls, opts.Version, opts.StartTime)
	r.Get("/api/v1/health", health.ServeHTTP)

	if opts.Config.MetricsEnabled && opts.Collector != nil {
		prometheus.MustRegister(opts.Collector)
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(MaxBodySize(1 << 20))
		r.Use(RateLimiter(opts.Config.RateLimitRPS, opts.Config.RateLimitBurst))

		r.Route("/api/v1", func(r chi.Router) {
			NewContactsHandler(opts.Contacts).Routes(r)
			NewMessagesHandler(opts.Sink).Routes(r)
		})
	})

	return &Server{
		http: &http.Server{
			Addr:         opts.Config.HTTPAddr,
			Handler:      r,
			ReadTimeout:  opts.Config.ReadTimeout,
			WriteTimeout: opts.Config.WriteTimeout,
			IdleTimeout:  opts.Config.IdleTimeout,
		},
		log: opts.Log,
	}
}

func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown() error {
	return s.http.Close()
}
