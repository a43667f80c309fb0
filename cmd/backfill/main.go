package main

import (
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"arxiv-hand/config"
	"arxiv-hand/services"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s DATE\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Embeds all papers published on DATE (YYYYMMDD).")
		os.Exit(2)
	}

	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	day, err := services.ParseYMD(os.Args[1])
	if err != nil {
		logging.Fatal("Invalid date", zap.String("arg", os.Args[1]), zap.Error(err))
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

	embedder := services.NewEmbedder(cfg, logging)
	backfiller := services.NewBackfiller(db, embedder, logging)

	stats, err := backfiller.RunForDate(day)
	if err != nil {
		logging.Fatal("Backfill failed", zap.Error(err))
	}
	logging.Info("Backfill complete",
		zap.Int("updated", stats.Updated), zap.Int("skipped", stats.Skipped))
}
