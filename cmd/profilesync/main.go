package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/slco-2016/cTracksImporter/internal/config"
	"github.com/slco-2016/cTracksImporter/internal/repository/postgres"
	"github.com/slco-2016/cTracksImporter/internal/service/profile"
	"github.com/slco-2016/cTracksImporter/pkg/logger"
)

func main() {
	filePath := flag.String("file", "client-profile-updates.csv", "client profile updates CSV")
	flag.Parse()

	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load config")
	}
	log.Info("starting profile sync", "env", cfg.Env)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	file, err := os.Open(*filePath)
	if err != nil {
		log.Fatal(err, "failed to open profile CSV")
	}
	defer file.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	base := postgres.NewBaseRepository(db)
	service := profile.NewService(postgres.NewClientRepository(base), log)

	summary, err := service.Sync(ctx, file)
	if err != nil {
		log.Fatal(err, "sync aborted")
	}

	log.Info("sync complete",
		"processed", summary.Processed,
		"updated", summary.Updated,
		"unchanged", summary.Unchanged,
		"rejected", summary.Rejected,
		"not_found", summary.NotFound,
		"failed", summary.Failed,
	)
	if summary.Failed > 0 {
		os.Exit(1)
	}
}
