package services

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"arxiv-hand/models"
)

// OverviewSummary holds database-wide totals.
type OverviewSummary struct {
	Papers       int64         `json:"papers"`
	Authors      int64         `json:"authors"`
	Categories   int64         `json:"categories"`
	PapersByYear map[int]int64 `json:"papers_by_year,omitempty"`
}

// CategoryCount is a per-category paper count for one day.
type CategoryCount struct {
	CategoryCode string `json:"category_code"`
	Count        int64  `json:"count"`
}

// Overview reports database statistics, used by the CLI tools after a run.
type Overview struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewOverview creates an overview reporter.
func NewOverview(db *gorm.DB, logger *zap.Logger) *Overview {
	return &Overview{DB: db, Logger: logger}
}

// Summary counts the main tables. The per-year breakdown needs PostgreSQL
// and is omitted on other dialects.
func (o *Overview) Summary() (*OverviewSummary, error) {
	var s OverviewSummary
	if err := o.DB.Model(&models.Paper{}).Count(&s.Papers).Error; err != nil {
		return nil, fmt.Errorf("counting papers: %w", err)
	}
	if err := o.DB.Model(&models.Author{}).Count(&s.Authors).Error; err != nil {
		return nil, fmt.Errorf("counting authors: %w", err)
	}
	if err := o.DB.Model(&models.Category{}).Count(&s.Categories).Error; err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}

	if o.DB.Dialector.Name() == "postgres" {
		var rows []struct {
			Year  int
			Count int64
		}
		err := o.DB.Raw(`
			SELECT EXTRACT(YEAR FROM arxiv_published_at)::int AS year, COUNT(*) AS count
			FROM papers
			WHERE arxiv_published_at IS NOT NULL
			GROUP BY year
			ORDER BY year`).Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("counting papers by year: %w", err)
		}
		s.PapersByYear = make(map[int]int64, len(rows))
		for _, r := range rows {
			s.PapersByYear[r.Year] = r.Count
		}
	}
	return &s, nil
}

// DayStats counts papers published on the given UTC day per primary
// category.
func (o *Overview) DayStats(day time.Time) ([]CategoryCount, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	dayEnd := day.Add(24*time.Hour - time.Nanosecond)

	var counts []CategoryCount
	err := o.DB.Model(&models.Paper{}).
		Select("primary_category_code AS category_code, COUNT(*) AS count").
		Where("arxiv_published_at >= ? AND arxiv_published_at <= ?", day, dayEnd).
		Group("primary_category_code").
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("counting papers for day: %w", err)
	}
	return counts, nil
}
