package services

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"arxiv-hand/config"
	"arxiv-hand/storage"
)

// minPDFSize rejects downloads that are an error page instead of a paper.
const minPDFSize = 10000

// DownloadReport lists the outcome of one download run.
type DownloadReport struct {
	Successful []string
	Failed     []string
}

// Downloader fetches paper PDFs with a bounded worker pool. Files already
// present with a plausible size are skipped; undersized results are treated
// as failures and removed. An S3 client turns on mirroring.
type Downloader struct {
	Logger     *zap.Logger
	OutputDir  string
	Workers    int
	MaxRetries int
	RetryDelay time.Duration

	// BaseURL is the PDF host, without a trailing slash.
	BaseURL string

	S3Client *s3.Client
	S3Bucket string
	Config   *config.Config

	client *http.Client
}

// NewDownloader creates a PDF downloader from the configuration. The S3
// mirror stays off until a client is attached.
func NewDownloader(cfg *config.Config, logger *zap.Logger) *Downloader {
	return &Downloader{
		Logger:     logger,
		OutputDir:  cfg.PDFOutputDir,
		Workers:    cfg.PDFWorkers,
		MaxRetries: cfg.PDFMaxRetries,
		RetryDelay: 5 * time.Second,
		BaseURL:    "https://arxiv.org/pdf",
		Config:     cfg,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// DownloadAll fetches the PDFs for all given paper identifiers in parallel
// and returns which succeeded and which did not.
func (d *Downloader) DownloadAll(ids []string) DownloadReport {
	workers := d.Workers
	if workers <= 0 {
		workers = 5
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report DownloadReport
	)
	sem := make(chan struct{}, workers)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			path, err := d.Download(id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				d.Logger.Error("PDF download failed", zap.String("paper_id", id), zap.Error(err))
				report.Failed = append(report.Failed, id)
				return
			}
			d.Logger.Info("PDF downloaded", zap.String("paper_id", id), zap.String("path", path))
			report.Successful = append(report.Successful, id)
		}(id)
	}
	wg.Wait()

	d.Logger.Info("Download run finished",
		zap.Int("successful", len(report.Successful)), zap.Int("failed", len(report.Failed)))
	return report
}

// Download fetches one PDF, retrying with a growing delay. The file lands
// in OutputDir as "<id>.pdf"; the local path is returned.
func (d *Downloader) Download(paperID string) (string, error) {
	if err := os.MkdirAll(d.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	outputPath := filepath.Join(d.OutputDir, paperID+".pdf")
	if info, err := os.Stat(outputPath); err == nil && info.Size() > minPDFSize {
		return outputPath, nil
	}

	baseURL := d.BaseURL
	if baseURL == "" {
		baseURL = "https://arxiv.org/pdf"
	}
	pdfURL := fmt.Sprintf("%s/%s.pdf", baseURL, paperID)
	maxRetries := d.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 && d.RetryDelay > 0 {
			time.Sleep(d.RetryDelay * time.Duration(attempt))
		}
		if err := d.fetchToFile(pdfURL, outputPath); err != nil {
			lastErr = err
			d.Logger.Warn("Download attempt failed",
				zap.String("paper_id", paperID), zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}

		if d.S3Client != nil && d.S3Bucket != "" {
			if err := d.mirror(paperID, outputPath); err != nil {
				d.Logger.Warn("S3 mirror failed", zap.String("paper_id", paperID), zap.Error(err))
			}
		}
		return outputPath, nil
	}

	// A partial file left behind would be skipped on the next run.
	os.Remove(outputPath)
	return "", fmt.Errorf("downloading %s: %w", paperID, lastErr)
}

// fetchToFile streams one URL to disk and validates the result size.
func (d *Downloader) fetchToFile(url, outputPath string) error {
	resp, err := d.client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	written, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if written < minPDFSize {
		os.Remove(outputPath)
		return fmt.Errorf("file too small (%d bytes), likely an error page", written)
	}
	return nil
}

// mirror uploads the downloaded PDF to the configured bucket.
func (d *Downloader) mirror(paperID, outputPath string) error {
	data, err := os.ReadFile(outputPath)
	if err != nil {
		return err
	}
	_, err = storage.UploadFile(d.S3Client, d.S3Bucket, paperID+".pdf", data, d.Config)
	return err
}

// WriteFailedReport saves the failed identifiers to a file in the working
// directory so a rerun can be fed just the leftovers. No file is written
// when nothing failed.
func (d *Downloader) WriteFailedReport(report DownloadReport, name string) (string, error) {
	if len(report.Failed) == 0 {
		return "", nil
	}
	path := fmt.Sprintf("failed_downloads_%s.txt", name)
	content := strings.Join(report.Failed, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing failure report: %w", err)
	}
	return path, nil
}
