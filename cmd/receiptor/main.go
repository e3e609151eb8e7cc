package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/receiptorhq/receiptor/internal/clock"
	"github.com/receiptorhq/receiptor/internal/config"
	"github.com/receiptorhq/receiptor/internal/migration"
	"github.com/receiptorhq/receiptor/internal/observability"
	"github.com/receiptorhq/receiptor/internal/server"
	"github.com/receiptorhq/receiptor/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
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
