package main

import (
	"github.com/burnhq/brnit/internal/clock"
	"github.com/burnhq/brnit/internal/config"
	"github.com/burnhq/brnit/internal/migration"
	"github.com/burnhq/brnit/internal/server"
	"github.com/burnhq/brnit/pkg/db"
	"github.com/burnhq/brnit/pkg/log"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
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
