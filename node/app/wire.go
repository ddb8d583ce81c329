//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/config"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/keys"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/metrics"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/store"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/timelock"
)

var loggerSet = wire.NewSet(
	newLogger,
)

var keyManagerSet = wire.NewSet(
	wire.FieldsOf(new(*config.Config), "Key"),
	keys.NewKeyManager,
)

var storeSet = wire.NewSet(
	wire.FieldsOf(new(*config.Config), "DB"),
	newKVDB,
	store.NewPebbleRecordStore,
	wire.Bind(new(store.RecordStore), new(*store.PebbleRecordStore)),
)

var timelockSet = wire.NewSet(
	wire.FieldsOf(new(*config.Config), "VDF", "Metrics"),
	metrics.NewMetrics,
	timelock.NewService,
)

func NewNode(*config.Config) (*Node, func(), error) {
	panic(wire.Build(
		loggerSet,
		keyManagerSet,
		storeSet,
		timelockSet,
		newNode,
	))
}
