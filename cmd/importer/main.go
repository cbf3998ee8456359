package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/slco-2016/cTracksImporter/internal/config"
	"github.com/slco-2016/cTracksImporter/internal/repository/postgres"
	"github.com/slco-2016/cTracksImporter/internal/service/reminder"
	"github.com/slco-2016/cTracksImporter/pkg/logger"
)

func main() {
	locationsPath := flag.String("locations", "court_locations.csv", "court locations reference table")
	primaryPath := flag.String("primary", "data.unl", "pipe-delimited primary Ctracks export")
	secondaryPath := flag.String("secondary", "data.csv", "comma-delimited secondary Ctracks export")
	flag.Parse()

	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load config")
	}
	log.Info("starting importer", "env", cfg.Env)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	service := reminder.NewService(
		postgres.NewClientRepository(base),
		postgres.NewNotificationRepository(base),
		log,
		reminder.Config{
			WindowDays:  cfg.Importer.WindowDays,
			LeadDays:    cfg.Importer.LeadDays,
			MaxInFlight: cfg.Importer.MaxInFlight,
		},
	)

	locations, err := os.Open(*locationsPath)
	if err != nil {
		log.Fatal(err, "failed to open location table")
	}
	defer locations.Close()

	primary, err := os.Open(*primaryPath)
	if err != nil {
		log.Fatal(err, "failed to open primary feed")
	}
	defer primary.Close()

	secondary, err := os.Open(*secondaryPath)
	if err != nil {
		log.Fatal(err, "failed to open secondary feed")
	}
	defer secondary.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	summary, err := service.Run(ctx, reminder.Inputs{
		Locations: locations,
		Primary:   primary,
		Secondary: secondary,
	})
	if err != nil {
		log.Fatal(err, "run aborted")
	}

	if len(summary.Failures) > 0 {
		for _, failure := range summary.Failures {
			log.Error(failure.Err, "candidate failed", "client_id", failure.ClientID, "operation", failure.Reason)
		}
		log.Error(fmt.Errorf("%d of %d candidates failed", len(summary.Failures), summary.Permitted), "run completed with failures")
		os.Exit(1)
	}
}
