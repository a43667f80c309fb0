package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"arxiv-hand/models"
)

// BackfillStats summarizes one embedding backfill run.
type BackfillStats struct {
	Updated int
	Skipped int
}

// Backfiller computes embeddings for papers published on a given day and
// writes them back. Papers without both title and abstract are skipped, as
// are papers the embedding API fails for; a later rerun picks them up.
type Backfiller struct {
	DB       *gorm.DB
	Embedder *Embedder
	Logger   *zap.Logger
}

// NewBackfiller creates an embedding backfiller.
func NewBackfiller(db *gorm.DB, embedder *Embedder, logger *zap.Logger) *Backfiller {
	return &Backfiller{DB: db, Embedder: embedder, Logger: logger}
}

// RunForDate embeds all papers with an arXiv publication timestamp on the
// given UTC day.
func (b *Backfiller) RunForDate(day time.Time) (BackfillStats, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	dayEnd := day.Add(24*time.Hour - time.Nanosecond)
	log := b.Logger.With(zap.String("date", day.Format("2006-01-02")))

	var papers []models.Paper
	err := b.DB.
		Select("id", "title", "abstract", "summary_ai", "detailed_review_ai").
		Where("arxiv_published_at >= ? AND arxiv_published_at <= ?", day, dayEnd).
		Find(&papers).Error
	if err != nil {
		return BackfillStats{}, fmt.Errorf("loading papers: %w", err)
	}
	log.Info("Backfilling embeddings", zap.Int("papers", len(papers)))

	var stats BackfillStats
	for _, paper := range papers {
		if paper.Title == "" || paper.Abstract == "" {
			stats.Skipped++
			continue
		}

		text := strings.TrimSpace(paper.Title) + "\n\n" + strings.TrimSpace(paper.Abstract)
		titleAbstract, err := b.Embedder.Embed(text)
		if err != nil {
			log.Warn("Embedding failed", zap.String("paper_id", paper.ID), zap.Error(err))
			stats.Skipped++
			continue
		}

		updates := map[string]interface{}{
			"title_abstract_embedding": pgvector.NewVector(titleAbstract),
		}
		if combined := summaryReviewText(&paper); combined != "" {
			vec, err := b.Embedder.Embed(combined)
			if err != nil {
				log.Warn("Summary embedding failed", zap.String("paper_id", paper.ID), zap.Error(err))
			} else {
				updates["summary_review_embedding"] = pgvector.NewVector(vec)
			}
		}

		err = b.DB.Model(&models.Paper{}).Where("id = ?", paper.ID).Updates(updates).Error
		if err != nil {
			return stats, fmt.Errorf("updating embeddings for %s: %w", paper.ID, err)
		}
		stats.Updated++
	}

	log.Info("Backfill finished", zap.Int("updated", stats.Updated), zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// summaryReviewText combines whichever AI fields exist into one embedding
// input, or returns "" when neither is set.
func summaryReviewText(p *models.Paper) string {
	var parts []string
	if p.SummaryAI != nil && *p.SummaryAI != "" {
		parts = append(parts, strings.TrimSpace(*p.SummaryAI))
	}
	if p.DetailedReviewAI != nil && *p.DetailedReviewAI != "" {
		parts = append(parts, strings.TrimSpace(*p.DetailedReviewAI))
	}
	return strings.Join(parts, "\n\n")
}
