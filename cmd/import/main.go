package main

import (
	"encoding/json"
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
		fmt.Fprintf(os.Stderr, "Usage: %s PAPERS_JSON_FILE\n", os.Args[0])
		os.Exit(2)
	}

	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		logging.Fatal("Could not read input file", zap.String("file", os.Args[1]), zap.Error(err))
	}
	var records []services.ImportRecord
	if err := json.Unmarshal(data, &records); err != nil {
		logging.Fatal("Invalid JSON, expected an array of papers", zap.Error(err))
	}
	logging.Info("Loaded import file", zap.String("file", os.Args[1]), zap.Int("records", len(records)))

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

	importer := services.NewImporter(db, logging)
	if cfg.ImportFlushSize > 0 {
		importer.FlushSize = cfg.ImportFlushSize
	}

	stats, err := importer.Import(records)
	if err != nil {
		logging.Fatal("Import failed", zap.Error(err))
	}
	logging.Info("Import complete",
		zap.Int("imported", stats.Imported), zap.Int("skipped", stats.Skipped))
}
