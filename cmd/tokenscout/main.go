package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/tokenscout/tokenscout/internal/app"
	"github.com/tokenscout/tokenscout/internal/config"
)

// main runs the CLI entrypoint and exits on unrecoverable errors.
func main() {
	if errRun := run(os.Args[1:]); errRun != nil {
		log.WithError(errRun).Error("command failed")
		os.Exit(1)
	}
}

// run parses flags, loads config, and starts the server.
func run(args []string) error {
	fs := flag.NewFlagSet("tokenscout", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	port := fs.Int("port", 0, "server port (overrides config)")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	// A missing .env is fine; env vars may come from the environment itself.
	if errEnv := godotenv.Load(); errEnv != nil && !os.IsNotExist(errEnv) {
		log.WithError(errEnv).Warn("load .env failed")
	}

	cfg, err := config.Load(config.ResolveConfigPath(*cfgPath))
	if err != nil {
		return err
	}
	if *port > 0 {
		cfg.Port = *port
		if errValidate := cfg.Validate(); errValidate != nil {
			return errValidate
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.RunServer(ctx, cfg)
}
