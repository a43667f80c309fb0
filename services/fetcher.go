package services

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"arxiv-hand/config"
	"arxiv-hand/providers"
)

// Category tiers by expected daily submission volume. The tier decides how
// many categories are fetched between pauses and where the per-day result
// cap sits.
var (
	HighVolumeCategories = []string{"cs.AI", "cs.CV", "cs.LG", "cs.CL"}

	MediumVolumeCategories = []string{
		"cs.CR", "cs.NE", "cs.RO", "cs.IR", "cs.SE", "cs.SI", "cs.HC", "cs.DB",
	}

	LowVolumeCategories = []string{
		"cs.AR", "cs.CC", "cs.CE", "cs.CG", "cs.CY", "cs.DC", "cs.DL", "cs.DM",
		"cs.DS", "cs.ET", "cs.FL", "cs.GL", "cs.GR", "cs.GT", "cs.IT", "cs.LO",
		"cs.MA", "cs.MM", "cs.MS", "cs.NA", "cs.NI", "cs.OH", "cs.OS",
		"cs.PF", "cs.PL", "cs.SC", "cs.SD", "cs.SY",
	}
)

// TierConfig describes the fetch behavior for one volume tier.
type TierConfig struct {
	Name       string
	Categories []string
	GroupSize  int
	MaxResults int
	Pause      time.Duration
}

// DefaultTiers returns the standard tier layout: high-volume categories one
// at a time with the largest cap, low-volume ones in groups of five with the
// smallest.
func DefaultTiers() []TierConfig {
	return []TierConfig{
		{Name: "high", Categories: HighVolumeCategories, GroupSize: 1, MaxResults: 500, Pause: 5 * time.Second},
		{Name: "medium", Categories: MediumVolumeCategories, GroupSize: 2, MaxResults: 300, Pause: 3 * time.Second},
		{Name: "low", Categories: LowVolumeCategories, GroupSize: 5, MaxResults: 150, Pause: 2 * time.Second},
	}
}

// AllCategories returns every category covered by the default tiers.
func AllCategories() []string {
	var all []string
	all = append(all, HighVolumeCategories...)
	all = append(all, MediumVolumeCategories...)
	all = append(all, LowVolumeCategories...)
	return all
}

// FetchService drives the daily ingestion: fetch per category, normalize,
// apply. One failing category never stops the run.
type FetchService struct {
	Config     *config.Config
	Store      *Store
	Provider   providers.Provider
	Normalizer *Normalizer
	Logger     *zap.Logger

	Tiers []TierConfig

	// InterDayPause is the wait between days in a range run. Zero means the
	// 10s default; tests set a negative value to skip pausing entirely.
	InterDayPause time.Duration
}

// NewFetchService creates a fetch service with the default tier layout.
func NewFetchService(cfg *config.Config, store *Store, provider providers.Provider, logger *zap.Logger) *FetchService {
	return &FetchService{
		Config:     cfg,
		Store:      store,
		Provider:   provider,
		Normalizer: NewNormalizer(logger),
		Logger:     logger,
		Tiers:      DefaultTiers(),
	}
}

// RunForDate ingests all configured categories for one UTC day and returns
// the number of papers applied. Fetch errors are logged per category; any
// records materialized before the failure are still processed.
func (s *FetchService) RunForDate(day time.Time) int {
	day = day.UTC().Truncate(24 * time.Hour)
	log := s.Logger.With(zap.String("date", day.Format("2006-01-02")))
	log.Info("Starting daily fetch run.")

	applied := 0
	for _, tier := range s.Tiers {
		groupSize := tier.GroupSize
		if groupSize <= 0 {
			groupSize = 1
		}
		for start := 0; start < len(tier.Categories); start += groupSize {
			end := start + groupSize
			if end > len(tier.Categories) {
				end = len(tier.Categories)
			}
			for _, category := range tier.Categories[start:end] {
				applied += s.runCategory(category, day, tier.MaxResults, log)
			}
			if tier.Pause > 0 {
				time.Sleep(tier.Pause)
			}
		}
	}

	if stats, err := NewOverview(s.Store.DB, s.Logger).DayStats(day); err != nil {
		log.Warn("Could not compute day stats", zap.Error(err))
	} else {
		for _, c := range stats {
			log.Info("Day stats", zap.String("category", c.CategoryCode), zap.Int64("papers", c.Count))
		}
	}

	log.Info("Daily fetch run finished", zap.Int("papers_applied", applied))
	return applied
}

// runCategory fetches one category for one day and applies every usable
// record.
func (s *FetchService) runCategory(category string, day time.Time, max int, log *zap.Logger) int {
	records, err := s.Provider.FetchDay(category, day, max)
	if err != nil {
		log.Error("Fetch failed, processing partial results",
			zap.String("category", category), zap.Int("partials", len(records)), zap.Error(err))
	}

	applied := 0
	for _, rec := range records {
		paper, authors, categories, err := s.Normalizer.Normalize(rec)
		if err != nil {
			log.Warn("Skipping record",
				zap.String("category", category), zap.String("entry_url", rec.EntryURL), zap.Error(err))
			continue
		}
		if err := s.Store.ApplyPaper(paper, authors, categories); err != nil {
			log.Error("Failed to store paper",
				zap.String("paper_id", paper.ID), zap.Error(err))
			continue
		}
		applied++
	}

	log.Info("Category done",
		zap.String("category", category), zap.Int("fetched", len(records)), zap.Int("applied", applied))
	return applied
}

// RunRange ingests every day from start to end inclusive, pausing between
// days. It returns the total number of papers applied.
func (s *FetchService) RunRange(start, end time.Time) int {
	start = start.UTC().Truncate(24 * time.Hour)
	end = end.UTC().Truncate(24 * time.Hour)

	pause := s.InterDayPause
	if pause == 0 {
		pause = 10 * time.Second
	}

	total := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		total += s.RunForDate(day)
		if pause > 0 && day.Before(end) {
			time.Sleep(pause)
		}
	}
	return total
}

// ParseYMD parses a compact "YYYYMMDD" date into a UTC timestamp at
// midnight.
func ParseYMD(s string) (time.Time, error) {
	t, err := time.ParseInLocation("20060102", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYYMMDD: %w", s, err)
	}
	return t, nil
}
