package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"

	"yeetbank/internal/app"
	"yeetbank/pkg/config"
	"yeetbank/pkg/logger"
	"yeetbank/pkg/shutdown"
)

// set build metadata
var version = "dev"

func main() {
	// load .env file if present
	_ = godotenv.Load(".env")

	cfgPath := flag.String("config", "", "config file path")
	host := flag.String("host", "", "listen address")
	port := flag.Int("port", 0, "listen port")
	accounts := flag.String("accounts", "", "YAML seed file replacing the built-in demo accounts")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *cfgPath != "")
	if err != nil {
		shutdown.Abort("failed to load config", err)
	}
	if *host != "" {
		cfg.Server.Address = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *accounts != "" {
		cfg.Demo.AccountsFile = *accounts
	}
	if err := config.ValidateConfig(cfg); err != nil {
		shutdown.Abort("invalid configuration", err)
	}

	logger.InitWithLevel(cfg.Logging.Level)
	defer logger.Sync()
	logger.Info("effective_config_loaded", "addr", cfg.Addr(), "accounts_file", cfg.Demo.AccountsFile)

	a, err := app.New(cfg, version)
	if err != nil {
		shutdown.Abort("failed to initialize app", err)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("app run failed", err)
	}

	// bounded so teardown cannot hang forever
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer shutdownCancel()
	_ = a.Shutdown(shutdownCtx)
}
