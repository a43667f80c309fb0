package arxiv

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"arxiv-hand/config"
	"arxiv-hand/providers"
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// Fetcher implements the Provider interface for the arXiv Atom API.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger

	// MaxRetries and RetryDelay bound the handling of transient API
	// failures. Zero values fall back to the defaults (3 attempts, 15s).
	MaxRetries int
	RetryDelay time.Duration
}

// NewFetcher creates a new arXiv fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		Config:     cfg,
		Logger:     logger,
		MaxRetries: 3,
		RetryDelay: 15 * time.Second,
	}
}

// Name returns the name of the provider.
func (f *Fetcher) Name() string {
	return "arxiv"
}

// transientError marks an API failure worth retrying (network errors and
// server-side HTTP statuses).
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// FetchDay pages through all records submitted in the category on the given
// UTC day, in ascending submission order. Transient API failures are retried
// up to MaxRetries times with a fixed delay; after exhaustion the records
// materialized so far are returned together with the error. Any other
// failure aborts immediately, also returning partials.
func (f *Fetcher) FetchDay(category string, day time.Time, max int) ([]providers.RawRecord, error) {
	query := buildDayQuery(category, day)
	log := f.Logger.With(zap.String("category", category), zap.String("query", query))
	log.Info("Starting arXiv fetch.")

	pageSize := f.Config.ArxivPageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	maxRetries := f.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var records []providers.RawRecord
	failures := 0
	for start := 0; ; {
		size := pageSize
		if max > 0 && max-len(records) < size {
			size = max - len(records)
		}
		if size <= 0 {
			break
		}

		feed, err := f.fetchPage(query, start, size)
		if err != nil {
			if _, ok := err.(*transientError); !ok {
				log.Error("arXiv fetch aborted", zap.Error(err))
				return records, err
			}
			failures++
			if failures >= maxRetries {
				log.Error("Max retries reached for arXiv API call",
					zap.Int("failures", failures), zap.Int("records_so_far", len(records)))
				return records, fmt.Errorf("arxiv fetch for %s: %w", category, err)
			}
			log.Warn("Transient arXiv API error, retrying",
				zap.Int("attempt", failures), zap.Duration("delay", f.RetryDelay), zap.Error(err))
			time.Sleep(f.RetryDelay)
			continue
		}

		for i := range feed.Entries {
			records = append(records, entryToRecord(&feed.Entries[i]))
		}
		start += len(feed.Entries)
		if len(feed.Entries) < size {
			break
		}
	}

	log.Info("arXiv fetch finished", zap.Int("records", len(records)))
	return records, nil
}

// fetchPage requests a single result page and decodes the Atom feed.
func (f *Fetcher) fetchPage(query string, start, size int) (*Feed, error) {
	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", fmt.Sprintf("%d", start))
	params.Set("max_results", fmt.Sprintf("%d", size))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "ascending")
	reqURL := fmt.Sprintf("%s?%s", f.Config.ArxivBaseURL, params.Encode())
	f.Logger.Debug("Calling arXiv API", zap.String("url", reqURL))

	resp, err := httpClient.Get(reqURL)
	if err != nil {
		return nil, &transientError{err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("arxiv API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, &transientError{err}
		}
		return nil, err
	}

	var feed Feed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arxiv feed: %w", err)
	}
	return &feed, nil
}

// buildDayQuery combines the closed UTC day window and the category into
// the arXiv filter syntax.
func buildDayQuery(category string, day time.Time) string {
	d := day.UTC().Format("20060102")
	return fmt.Sprintf("submittedDate:[%s000000 TO %s235959] AND cat:%s", d, d, category)
}

// entryToRecord maps an Atom entry onto the provider-neutral record shape.
func entryToRecord(entry *Entry) providers.RawRecord {
	rec := providers.RawRecord{
		EntryURL:        strings.TrimSpace(entry.ID),
		Title:           strings.TrimSpace(entry.Title),
		Summary:         strings.TrimSpace(entry.Summary),
		PrimaryCategory: entry.PrimaryCategory.Term,
		PDFURL:          pdfLink(entry),
		Published:       parseAtomTime(entry.Published),
		Updated:         parseAtomTime(entry.Updated),
		JournalRef:      strings.TrimSpace(entry.JournalRef),
		DOI:             strings.TrimSpace(entry.DOI),
	}
	for _, a := range entry.Authors {
		rec.Authors = append(rec.Authors, strings.TrimSpace(a.Name))
	}
	for _, c := range entry.Categories {
		rec.Categories = append(rec.Categories, c.Term)
	}
	if rec.PrimaryCategory == "" && len(rec.Categories) > 0 {
		rec.PrimaryCategory = rec.Categories[0]
	}
	return rec
}
