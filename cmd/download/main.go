package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"arxiv-hand/config"
	"arxiv-hand/models"
	"arxiv-hand/services"
	"arxiv-hand/storage"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s ID [ID...]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "   or: %s -f ID_LIST_FILE\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "   or: %s -missing   (every paper without a local PDF)\n", os.Args[0])
		os.Exit(2)
	}

	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	var ids []string
	reportName := "cli"
	switch os.Args[1] {
	case "-f":
		if len(os.Args) != 3 {
			logging.Fatal("-f needs exactly one file argument")
		}
		ids, err = readIDFile(os.Args[2])
		if err != nil {
			logging.Fatal("Could not read id list", zap.String("file", os.Args[2]), zap.Error(err))
		}
		reportName = strings.TrimSuffix(filepath.Base(os.Args[2]), ".txt")
	case "-missing":
		ids, err = missingPDFIDs(cfg)
		if err != nil {
			logging.Fatal("Could not load paper ids from database", zap.Error(err))
		}
		reportName = "missing"
		logging.Info("Papers without a local PDF", zap.Int("count", len(ids)))
	default:
		ids = os.Args[1:]
	}
	if len(ids) == 0 {
		logging.Fatal("No paper ids to download")
	}

	downloader := services.NewDownloader(cfg, logging)
	if cfg.PDFS3Bucket != "" {
		s3Client, err := storage.NewS3Client(cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		downloader.S3Client = s3Client
		downloader.S3Bucket = cfg.PDFS3Bucket
	}

	report := downloader.DownloadAll(ids)
	if path, err := downloader.WriteFailedReport(report, reportName); err != nil {
		logging.Error("Could not write failure report", zap.Error(err))
	} else if path != "" {
		logging.Info("Failed ids written", zap.String("file", path))
	}

	if len(report.Failed) > 0 {
		os.Exit(1)
	}
}

// missingPDFIDs lists every paper in the database whose PDF is not yet in
// the output directory.
func missingPDFIDs(cfg *config.Config) ([]string, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	var all []string
	if err := db.Model(&models.Paper{}).Order("id").Pluck("id", &all).Error; err != nil {
		return nil, err
	}

	var missing []string
	for _, id := range all {
		if _, err := os.Stat(filepath.Join(cfg.PDFOutputDir, id+".pdf")); os.IsNotExist(err) {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// readIDFile reads one paper id per line, skipping blanks and # comments.
func readIDFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	return ids, scanner.Err()
}
