package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"invostock/internal/engine/notifications"
	"invostock/internal/pkg/logger"
	"invostock/internal/platform/config"
	"invostock/internal/platform/database"
	"invostock/internal/workers"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	w := workers.New(db, notifications.NewService(db))
	log.Info().
		Dur("low_stock_interval", cfg.Worker.LowStockInterval).
		Dur("overdue_interval", cfg.Worker.OverdueInterval).
		Msg("background workers starting")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		workers.Run(ctx, "low_stock", cfg.Worker.LowStockInterval, w.LowStockAlerts)
		return nil
	})
	g.Go(func() error {
		workers.Run(ctx, "overdue_invoices", cfg.Worker.OverdueInterval, w.OverdueInvoiceReminders)
		return nil
	})
	g.Wait()
}
