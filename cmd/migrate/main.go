package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/rs/zerolog/log"

	"invostock/internal/pkg/logger"
	"invostock/internal/platform/config"
	"invostock/internal/platform/database"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [-config path] up|down|status|version|redo|reset|up-to N|down-to N")
		flag.PrintDefaults()
	}
	flag.Parse()

	command := "up"
	var args []string
	if flag.NArg() > 0 {
		command, args = flag.Arg(0), flag.Args()[1:]
	}

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

	if err := database.RunMigrations(context.Background(), db, command, args...); err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("migration failed")
	}
	log.Info().Str("command", command).Msg("migration completed")
}
