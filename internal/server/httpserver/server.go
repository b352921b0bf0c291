// Package httpserver exposes the sync services over HTTP/JSON:
// login, push, pull, health and Prometheus metrics.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/nibblelog/internal/logging"
	"github.com/dmitrijs2005/nibblelog/internal/server/metrics"
	"github.com/dmitrijs2005/nibblelog/internal/server/models"
	"github.com/dmitrijs2005/nibblelog/internal/server/services"
	"github.com/gorilla/mux"
)

// SyncService is the push/pull backend.
type SyncService interface {
	Push(ctx context.Context, userID, deviceID string, batch []*models.Delta) (*services.PushResult, error)
	Pull(ctx context.Context, userID, deviceID string, cursor int64) (*services.PullResult, error)
}

// AuthService checks credentials and resolves access tokens.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*services.LoginResult, error)
	Authenticate(token string) (string, error)
}

type Server struct {
	addr    string
	sync    SyncService
	auth    AuthService
	metrics *metrics.Metrics
	origins []string
	log     logging.Logger
	handler http.Handler
}

const shutdownTimeout = 5 * time.Second

func NewServer(addr string, sync SyncService, auth AuthService, m *metrics.Metrics, origins []string, log logging.Logger) *Server {
	if log == nil {
		log = logging.Nop{}
	}
	s := &Server{
		addr:    addr,
		sync:    sync,
		auth:    auth,
		metrics: m,
		origins: origins,
		log:     log.With("module", "http"),
	}
	s.handler = cors(origins, s.routes())
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.accessLog)

	r.Methods(http.MethodGet).Path("/health").HandlerFunc(s.health)
	r.Methods(http.MethodPost).Path("/auth/login").HandlerFunc(s.login)
	if s.metrics != nil {
		r.Methods(http.MethodGet).Path("/metrics").Handler(s.metrics.Handler())
	}

	syncRoutes := r.PathPrefix("/sync").Subrouter()
	syncRoutes.Use(s.bearerAuth)
	syncRoutes.Methods(http.MethodPost).Path("/push").HandlerFunc(s.push)
	syncRoutes.Methods(http.MethodGet).Path("/pull").HandlerFunc(s.pull)

	return r
}

// Handler returns the complete HTTP handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "http server listening", "addr", lis.Addr().String())
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.log.Info(ctx, "http server stopped")
		return nil
	}
}
