package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/medicore/internal/clock"
	"github.com/smallbiznis/medicore/internal/config"
	"github.com/smallbiznis/medicore/internal/lock"
	"github.com/smallbiznis/medicore/internal/migration"
	"github.com/smallbiznis/medicore/internal/observability"
	"github.com/smallbiznis/medicore/internal/server"
	"github.com/smallbiznis/medicore/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		lock.Module,
		migration.Module,

		// Billing domains and the HTTP surface
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
