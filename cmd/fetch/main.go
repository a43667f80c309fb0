package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"arxiv-hand/config"
	"arxiv-hand/providers/arxiv"
	"arxiv-hand/services"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s START_DATE [END_DATE|today]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Dates in YYYYMMDD format. Without END_DATE only the start day is fetched.")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		usage()
	}

	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	start, err := services.ParseYMD(os.Args[1])
	if err != nil {
		logging.Fatal("Invalid start date", zap.String("arg", os.Args[1]), zap.Error(err))
	}
	end := start
	if len(os.Args) == 3 {
		if os.Args[2] == "today" {
			end = time.Now().UTC()
		} else {
			end, err = services.ParseYMD(os.Args[2])
			if err != nil {
				logging.Fatal("Invalid end date", zap.String("arg", os.Args[2]), zap.Error(err))
			}
		}
	}
	if end.Before(start) {
		logging.Fatal("End date is before start date")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}

	store := services.NewStore(db, logging)
	if err := store.EnsureSchema(); err != nil {
		logging.Fatal("Schema migration failed", zap.Error(err))
	}
	if err := store.SeedCategories(); err != nil {
		logging.Warn("Failed to seed category descriptions", zap.Error(err))
	}

	provider := arxiv.NewFetcher(cfg, logging)
	fetchService := services.NewFetchService(cfg, store, provider, logging)

	total := fetchService.RunRange(start, end)
	logging.Info("Fetch run finished",
		zap.String("start", start.Format("2006-01-02")),
		zap.String("end", end.Format("2006-01-02")),
		zap.Int("papers", total))

	overview := services.NewOverview(db, logging)
	summary, err := overview.Summary()
	if err != nil {
		logging.Warn("Could not compute database summary", zap.Error(err))
		return
	}
	logging.Info("Database summary",
		zap.Int64("papers", summary.Papers),
		zap.Int64("authors", summary.Authors),
		zap.Int64("categories", summary.Categories))
}
