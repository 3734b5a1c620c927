package main

import (
	"context"

	"solar-inventory-backend/internal/config"
	"solar-inventory-backend/internal/database"
	"solar-inventory-backend/internal/lock"
	"solar-inventory-backend/internal/logging"
	"solar-inventory-backend/internal/objectstore"
	"solar-inventory-backend/internal/server"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	database.Init(cfg, logger)

	ctx := context.Background()
	locker := lock.New(ctx, cfg.RedisAddress, logger)
	store, err := objectstore.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("object store: %v", err)
	}

	app := server.New(server.Deps{
		Config: cfg,
		DB:     database.DB,
		Logger: logger,
		Locker: locker,
		Store:  store,
	})

	logger.Infof("server listening on port %s", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.Fatal(err)
	}
}
