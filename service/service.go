// Package service hosts the optional HTTP endpoints (/metrics, /healthz)
// that stay up while a test run is active, so long-running runs can be
// scraped and health-checked.
package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/log"

	"github.com/erikdesjardins/testharness/metrics"
)

type Service struct {
	addr   string
	log    log.Logger
	server *http.Server
}

func New(addr string, logger log.Logger) *Service {
	return &Service{
		addr: addr,
		log:  logger.New("component", "service"),
	}
}

func (s *Service) Start(ctx context.Context) {
	s.log.Info("service starting", "addr", s.addr)

	s.server = newServer(s.addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error starting metrics server", "err", err)
			metrics.RecordErrorDetails("error starting metrics server", err)
		}
	}()

	s.log.Info("service started")
}

func (s *Service) Shutdown() {
	s.log.Info("service shutting down")
	if s.server != nil {
		_ = s.server.Shutdown(context.Background())
	}
	s.log.Info("service stopped")
}
