package app

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/config"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/keys"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/metrics"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/store"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/timelock"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/utils"
)

// Node is the assembled time-lock service with its optional metrics
// endpoint.
type Node struct {
	service    *timelock.Service
	keyManager keys.KeyManager
	pull       *metrics.PullService
	logger     *zap.Logger
}

func newNode(
	service *timelock.Service,
	keyManager keys.KeyManager,
	metricsConfig *config.MetricsConfig,
	logger *zap.Logger,
) (*Node, error) {
	if service == nil {
		return nil, errors.New("service must not be nil")
	}

	var pull *metrics.PullService
	if metricsConfig != nil && metricsConfig.ListenAddr != "" {
		pull = metrics.NewPullService(metricsConfig.ListenAddr, nil, logger)
	}

	return &Node{
		service:    service,
		keyManager: keyManager,
		pull:       pull,
		logger:     logger,
	}, nil
}

func (n *Node) Service() *timelock.Service {
	return n.service
}

func (n *Node) KeyManager() keys.KeyManager {
	return n.keyManager
}

func (n *Node) Logger() *zap.Logger {
	return n.logger
}

// Start serves metrics in the background until the context ends.
func (n *Node) Start(ctx context.Context) {
	if n.pull == nil {
		return
	}

	go func() {
		if err := n.pull.Run(ctx); err != nil {
			n.logger.Error("metrics service stopped", zap.Error(err))
		}
	}()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.LogFile == "" {
		log, err := zap.NewDevelopment()
		return log, errors.Wrap(err, "new logger")
	}

	logConfig := zap.NewProductionConfig()
	logConfig.OutputPaths = []string{cfg.LogFile}
	logConfig.ErrorOutputPaths = []string{cfg.LogFile}

	log, err := logConfig.Build()
	return log, errors.Wrap(err, "new logger")
}

const lowDiskSpace = 1 << 30

func newKVDB(
	dbConfig *config.DBConfig,
	logger *zap.Logger,
) (store.KVDB, func(), error) {
	if dbConfig == nil || dbConfig.InMemory {
		db := store.NewInMemKVDB()
		return db, func() { db.Close() }, nil
	}

	if err := os.MkdirAll(dbConfig.Path, 0700); err != nil {
		return nil, nil, errors.Wrap(err, "new kvdb")
	}

	space, err := utils.GetDiskSpace(dbConfig.Path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "new kvdb")
	}

	if space < lowDiskSpace {
		logger.Warn(
			"low disk space for store",
			zap.String("path", dbConfig.Path),
			zap.Uint64("available_bytes", space),
		)
	}

	db, err := store.NewPebbleDB(dbConfig)
	if err != nil {
		return nil, nil, errors.Wrap(err, "new kvdb")
	}

	return db, func() { db.Close() }, nil
}
