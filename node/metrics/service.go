package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// PullService exposes the registered collectors over http for prometheus to
// scrape.
type PullService struct {
	listenAddr string
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
}

func NewPullService(
	listenAddr string,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *PullService {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &PullService{
		listenAddr: listenAddr,
		gatherer:   gatherer,
		logger:     logger.With(zap.String("module", "metrics")),
	}
}

// Run serves /metrics until the context is cancelled.
func (s *PullService) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:           s.listenAddr,
		Handler:        mux,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving metrics", zap.String("listen_addr", s.listenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return errors.Wrap(err, "serve metrics")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return errors.Wrap(server.Shutdown(shutdownCtx), "shutdown metrics")
	}
}
