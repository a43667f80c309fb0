package services

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"arxiv-hand/models"
)

// Store persists normalized papers. All writes for one paper happen in a
// single transaction, so a failure leaves no partial graph behind.
type Store struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewStore creates a new paper store.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{DB: db, Logger: logger}
}

// EnsureSchema migrates all tables and, on PostgreSQL, installs the vector
// extension plus the generated full-text column. Other dialects (used in
// tests) only get the plain tables.
func (s *Store) EnsureSchema() error {
	isPostgres := s.DB.Dialector.Name() == "postgres"

	if isPostgres {
		if err := s.DB.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("installing vector extension: %w", err)
		}
	}

	err := s.DB.AutoMigrate(
		&models.Paper{},
		&models.Author{},
		&models.Category{},
		&models.PaperAuthor{},
		&models.PaperCategory{},
	)
	if err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	if isPostgres {
		stmts := []string{
			`ALTER TABLE papers ADD COLUMN IF NOT EXISTS fts_document tsvector
				GENERATED ALWAYS AS (to_tsvector('english', coalesce(title, '') || ' ' || coalesce(abstract, ''))) STORED`,
			`CREATE INDEX IF NOT EXISTS idx_papers_fts ON papers USING gin (fts_document)`,
		}
		for _, stmt := range stmts {
			if err := s.DB.Exec(stmt).Error; err != nil {
				return fmt.Errorf("installing full-text schema: %w", err)
			}
		}
	}
	return nil
}

// staleGuard keeps an upsert from overwriting a fresher row with an older
// record. Rows without a source timestamp on either side always update.
const staleGuard = "papers.arxiv_updated_at IS NULL OR excluded.arxiv_updated_at IS NULL OR excluded.arxiv_updated_at >= papers.arxiv_updated_at"

// paperUpdateColumns are the fields refreshed when a known identifier is
// re-ingested. AI fields and embeddings are deliberately absent.
var paperUpdateColumns = []string{
	"title", "abstract", "primary_category_code", "pdf_url",
	"arxiv_published_at", "arxiv_updated_at", "journal_ref", "doi", "updated_at",
}

// ApplyPaper upserts one paper with its author and category links. The
// operation is idempotent: replaying the same record converges to the same
// rows. Author ordinals are rewritten on every apply; category links are
// insert-or-ignore.
func (s *Store) ApplyPaper(paper *models.Paper, authors []string, categories []string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if paper.PrimaryCategoryCode != "" {
			if err := ensureCategory(tx, paper.PrimaryCategoryCode); err != nil {
				return err
			}
		}

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			Where:     clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: staleGuard}}},
			DoUpdates: clause.AssignmentColumns(paperUpdateColumns),
		}).Create(paper).Error
		if err != nil {
			return fmt.Errorf("upserting paper %s: %w", paper.ID, err)
		}

		for i, name := range authors {
			author := models.Author{Name: name}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).Create(&author).Error
			if err != nil {
				return fmt.Errorf("upserting author %q: %w", name, err)
			}
			if author.AuthorID == 0 {
				if err := tx.Where("name = ?", name).Take(&author).Error; err != nil {
					return fmt.Errorf("resolving author %q: %w", name, err)
				}
			}

			link := models.PaperAuthor{PaperID: paper.ID, AuthorID: author.AuthorID, AuthorOrder: i + 1}
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "paper_id"}, {Name: "author_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"author_order"}),
			}).Create(&link).Error
			if err != nil {
				return fmt.Errorf("linking author %q to %s: %w", name, paper.ID, err)
			}
		}

		for _, code := range categories {
			if err := ensureCategory(tx, code); err != nil {
				return err
			}
			link := models.PaperCategory{PaperID: paper.ID, CategoryCode: code}
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
			if err != nil {
				return fmt.Errorf("linking category %s to %s: %w", code, paper.ID, err)
			}
		}
		return nil
	})
}

// ensureCategory creates the category row on first sighting. Existing rows,
// including seeded descriptions, are left untouched.
func ensureCategory(tx *gorm.DB, code string) error {
	cat := models.Category{CategoryCode: code, Description: "Category - " + categorySuffix(code)}
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&cat).Error
	if err != nil {
		return fmt.Errorf("ensuring category %s: %w", code, err)
	}
	return nil
}

// SeedCategories inserts descriptions for the known computer science
// categories. Existing rows are never overwritten.
func (s *Store) SeedCategories() error {
	for _, code := range AllCategories() {
		cat := models.Category{
			CategoryCode: code,
			Description:  "Computer Science - " + categorySuffix(code),
		}
		err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&cat).Error
		if err != nil {
			return fmt.Errorf("seeding category %s: %w", code, err)
		}
	}
	return nil
}

// categorySuffix returns the part after the archive prefix, e.g. "AI" for
// "cs.AI". Codes without a dot are returned unchanged.
func categorySuffix(code string) string {
	if idx := strings.Index(code, "."); idx >= 0 && idx < len(code)-1 {
		return code[idx+1:]
	}
	return code
}
