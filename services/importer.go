package services

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"arxiv-hand/models"
)

// ImportRecord is one paper in a JSON export file. Timestamps are strings
// and parsed leniently; unparseable values import as NULL.
type ImportRecord struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Abstract            string   `json:"abstract"`
	PrimaryCategoryCode string   `json:"primary_category_code"`
	PDFURL              string   `json:"pdf_url"`
	ArxivPublishedAt    string   `json:"arxiv_published_at"`
	ArxivUpdatedAt      string   `json:"arxiv_updated_at"`
	SummaryAI           *string  `json:"summary_ai"`
	DetailedReviewAI    *string  `json:"detailed_review_ai"`
	JournalRef          *string  `json:"journal_ref"`
	DOI                 *string  `json:"doi"`
	Authors             []string `json:"authors"`
	Categories          []string `json:"categories"`
}

// ImportStats summarizes one bulk import run.
type ImportStats struct {
	Imported int
	Skipped  int
}

// Importer loads paper dumps in bulk. Unlike the live ingestion path it is
// insert-or-ignore throughout: existing papers are never touched, making
// re-running an import over the same file safe.
type Importer struct {
	DB     *gorm.DB
	Logger *zap.Logger

	// FlushSize is the number of papers accumulated before a batch is
	// written in its own transaction. Zero means 100.
	FlushSize int
}

// NewImporter creates a bulk importer.
func NewImporter(db *gorm.DB, logger *zap.Logger) *Importer {
	return &Importer{DB: db, Logger: logger, FlushSize: 100}
}

// importBatch is the pending state between flushes.
type importBatch struct {
	papers          []models.Paper
	authorsByPaper  map[string][]string
	paperCategories []models.PaperCategory
	newAuthors      []models.Author
	newCategories   []models.Category
}

// Import writes all records to the database, flushing in batches. Records
// without an identifier are skipped with a warning; a missing title becomes
// an empty string.
func (im *Importer) Import(records []ImportRecord) (ImportStats, error) {
	flushSize := im.FlushSize
	if flushSize <= 0 {
		flushSize = 100
	}

	// Preload existing authors and categories so the batches only carry
	// genuinely new rows.
	authorIDs := make(map[string]uint)
	var existingAuthors []models.Author
	if err := im.DB.Find(&existingAuthors).Error; err != nil {
		return ImportStats{}, fmt.Errorf("loading authors: %w", err)
	}
	for _, a := range existingAuthors {
		authorIDs[a.Name] = a.AuthorID
	}

	knownCategories := make(map[string]bool)
	var existingCategories []models.Category
	if err := im.DB.Find(&existingCategories).Error; err != nil {
		return ImportStats{}, fmt.Errorf("loading categories: %w", err)
	}
	for _, c := range existingCategories {
		knownCategories[c.CategoryCode] = true
	}

	var stats ImportStats
	batch := newImportBatch()
	for i, rec := range records {
		if rec.ID == "" {
			im.Logger.Warn("Skipping import record without id", zap.Int("index", i))
			stats.Skipped++
			continue
		}

		paper := models.Paper{
			ID:                  rec.ID,
			Title:               rec.Title,
			Abstract:            rec.Abstract,
			PrimaryCategoryCode: rec.PrimaryCategoryCode,
			PDFURL:              rec.PDFURL,
			ArxivPublishedAt:    parseImportTime(rec.ArxivPublishedAt),
			ArxivUpdatedAt:      parseImportTime(rec.ArxivUpdatedAt),
			SummaryAI:           rec.SummaryAI,
			DetailedReviewAI:    rec.DetailedReviewAI,
			JournalRef:          rec.JournalRef,
			DOI:                 rec.DOI,
		}
		batch.papers = append(batch.papers, paper)

		for _, name := range rec.Authors {
			if name == "" {
				continue
			}
			if _, ok := authorIDs[name]; !ok {
				batch.newAuthors = append(batch.newAuthors, models.Author{Name: name})
				authorIDs[name] = 0
			}
			batch.authorsByPaper[rec.ID] = append(batch.authorsByPaper[rec.ID], name)
		}

		for _, code := range rec.Categories {
			if code == "" {
				continue
			}
			if !knownCategories[code] {
				batch.newCategories = append(batch.newCategories, models.Category{
					CategoryCode: code,
					Description:  "Category - " + categorySuffix(code),
				})
				knownCategories[code] = true
			}
			batch.paperCategories = append(batch.paperCategories, models.PaperCategory{
				PaperID: rec.ID, CategoryCode: code,
			})
		}

		stats.Imported++
		if len(batch.papers) >= flushSize {
			if err := im.flush(batch, authorIDs); err != nil {
				return stats, err
			}
			im.Logger.Info("Flushed import batch", zap.Int("processed", i+1))
			batch = newImportBatch()
		}
	}

	if len(batch.papers) > 0 {
		if err := im.flush(batch, authorIDs); err != nil {
			return stats, err
		}
	}

	im.Logger.Info("Import finished",
		zap.Int("imported", stats.Imported), zap.Int("skipped", stats.Skipped))
	return stats, nil
}

func newImportBatch() *importBatch {
	return &importBatch{authorsByPaper: make(map[string][]string)}
}

// flush writes one batch in a single transaction. All inserts are
// insert-or-ignore, so a replayed batch is harmless.
func (im *Importer) flush(batch *importBatch, authorIDs map[string]uint) error {
	return im.DB.Transaction(func(tx *gorm.DB) error {
		if len(batch.newCategories) > 0 {
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&batch.newCategories).Error
			if err != nil {
				return fmt.Errorf("inserting categories: %w", err)
			}
		}

		if len(batch.newAuthors) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).Create(&batch.newAuthors).Error
			if err != nil {
				return fmt.Errorf("inserting authors: %w", err)
			}
		}
		// Resolve IDs for authors that were new in this batch. Conflicting
		// rows keep their existing ID, so a fresh lookup is the only safe way.
		for name, id := range authorIDs {
			if id != 0 {
				continue
			}
			var a models.Author
			if err := tx.Where("name = ?", name).Take(&a).Error; err != nil {
				return fmt.Errorf("resolving author %q: %w", name, err)
			}
			authorIDs[name] = a.AuthorID
		}

		if len(batch.papers) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).Create(&batch.papers).Error
			if err != nil {
				return fmt.Errorf("inserting papers: %w", err)
			}
		}

		var paperAuthors []models.PaperAuthor
		for paperID, names := range batch.authorsByPaper {
			for order, name := range names {
				paperAuthors = append(paperAuthors, models.PaperAuthor{
					PaperID: paperID, AuthorID: authorIDs[name], AuthorOrder: order + 1,
				})
			}
		}
		if len(paperAuthors) > 0 {
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&paperAuthors).Error
			if err != nil {
				return fmt.Errorf("inserting paper authors: %w", err)
			}
		}

		if len(batch.paperCategories) > 0 {
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&batch.paperCategories).Error
			if err != nil {
				return fmt.Errorf("inserting paper categories: %w", err)
			}
		}
		return nil
	})
}

// parseImportTime accepts the timestamp spellings found in the wild in
// export files.
func parseImportTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
