package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/simple-verify/pkg/bootstrap"
	"github.com/tendant/simple-verify/pkg/config"
	"github.com/tendant/simple-verify/pkg/verification"
)

type Config struct {
	Service config.ServiceConfig
}

func main() {
	timeout := flag.Duration("timeout", time.Minute, "Maximum time to spend deleting expired tokens")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{AddSource: true})))

	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read config", "error", err)
		os.Exit(1)
	}
	// The schema belongs to verifyd; the reaper only deletes rows.
	cfg.Service.RunMigrations = false

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	stores, err := bootstrap.OpenStores(ctx, cfg.Service)
	if err != nil {
		slog.Error("Failed to open stores", "persistence", cfg.Service.PersistenceType, "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	count, err := verification.NewReaper(stores.Tokens).RunOnce(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stores.Close()
		os.Exit(1)
	}
	fmt.Printf("Deleted %d expired tokens\n", count)
}
