package services

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"arxiv-hand/models"
)

// SearchResult is one search hit. Rank is filled by keyword search,
// Distance by semantic search; the respective other field stays zero.
type SearchResult struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Abstract            string     `json:"abstract,omitempty"`
	PrimaryCategoryCode string     `json:"primary_category_code,omitempty"`
	PDFURL              string     `json:"pdf_url,omitempty" gorm:"column:pdf_url"`
	SummaryAI           *string    `json:"summary_ai,omitempty"`
	DetailedReviewAI    *string    `json:"detailed_review_ai,omitempty"`
	ArxivPublishedAt    *time.Time `json:"arxiv_published_at,omitempty"`
	Rank                float64    `json:"rank,omitempty"`
	Distance            float64    `json:"distance,omitempty"`
}

// SearchService runs keyword and semantic queries against the papers table.
// Both paths need PostgreSQL; the full-text path additionally needs the
// generated fts_document column from EnsureSchema.
type SearchService struct {
	DB       *gorm.DB
	Embedder *Embedder
	Logger   *zap.Logger
}

// NewSearchService creates a search service.
func NewSearchService(db *gorm.DB, embedder *Embedder, logger *zap.Logger) *SearchService {
	return &SearchService{DB: db, Embedder: embedder, Logger: logger}
}

// FormatTsQuery turns free text into a to_tsquery expression. Words are
// stripped to alphanumerics and joined with AND; with prefixMatch each word
// gets a ":*" suffix. Returns "" when nothing searchable remains.
func FormatTsQuery(text string, prefixMatch bool) string {
	var terms []string
	for _, word := range strings.Fields(text) {
		var b strings.Builder
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
		if b.Len() == 0 {
			continue
		}
		term := b.String()
		if prefixMatch {
			term += ":*"
		}
		terms = append(terms, term)
	}
	return strings.Join(terms, " & ")
}

// Keyword runs a full-text search ranked by ts_rank, newest first among
// equal ranks. An unsearchable query returns no results and no error.
func (s *SearchService) Keyword(query string, limit int) ([]SearchResult, error) {
	tsQuery := FormatTsQuery(query, false)
	if tsQuery == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	var results []SearchResult
	err := s.DB.Raw(`
		SELECT id, title, abstract, primary_category_code, pdf_url, summary_ai,
		       detailed_review_ai, arxiv_published_at,
		       ts_rank(fts_document, to_tsquery('english', ?)) AS rank
		FROM papers
		WHERE fts_document @@ to_tsquery('english', ?)
		ORDER BY rank DESC, arxiv_published_at DESC
		LIMIT ?`, tsQuery, tsQuery, limit).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return results, nil
}

// Semantic embeds the query and returns the nearest papers by cosine
// distance over the title-abstract embedding. Papers without an embedding
// are invisible to this path.
func (s *SearchService) Semantic(query string, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}
	embedding, err := s.Embedder.Embed(query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	var results []SearchResult
	err = s.DB.Raw(`
		SELECT id, title, abstract, primary_category_code, pdf_url, summary_ai,
		       detailed_review_ai, arxiv_published_at,
		       (title_abstract_embedding <=> ?) AS distance
		FROM papers
		WHERE title_abstract_embedding IS NOT NULL
		ORDER BY distance ASC
		LIMIT ?`, pgvector.NewVector(embedding), topK).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	return results, nil
}

// Suggest returns up to seven titles matching the term as a prefix query.
// Terms shorter than three characters yield nothing.
func (s *SearchService) Suggest(term string) ([]string, error) {
	if len(term) < 3 {
		return nil, nil
	}
	tsQuery := FormatTsQuery(term, true)
	if tsQuery == "" {
		return nil, nil
	}

	var titles []string
	err := s.DB.Raw(`
		SELECT title
		FROM papers
		WHERE fts_document @@ to_tsquery('english', ?)
		ORDER BY ts_rank(fts_document, to_tsquery('english', ?)) DESC
		LIMIT 7`, tsQuery, tsQuery).Scan(&titles).Error
	if err != nil {
		return nil, fmt.Errorf("search suggestions: %w", err)
	}
	return titles, nil
}

// PaperQuery filters papers by optional category and publication window.
type PaperQuery struct {
	Category string     `json:"category"`
	From     *time.Time `json:"from"`
	To       *time.Time `json:"to"`
	Limit    int        `json:"limit"`
}

// Query lists papers matching the filter, newest first.
func (s *SearchService) Query(q PaperQuery) ([]models.Paper, error) {
	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	db := s.DB.Model(&models.Paper{})
	if q.Category != "" {
		db = db.Where("primary_category_code = ?", q.Category)
	}
	if q.From != nil {
		db = db.Where("arxiv_published_at >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("arxiv_published_at <= ?", *q.To)
	}

	var papers []models.Paper
	err := db.Order("arxiv_published_at DESC").Limit(limit).Find(&papers).Error
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	return papers, nil
}

// Get loads one paper with its authors in order and its category codes.
func (s *SearchService) Get(id string) (*models.Paper, []string, []string, error) {
	var paper models.Paper
	if err := s.DB.Take(&paper, "id = ?", id).Error; err != nil {
		return nil, nil, nil, err
	}

	var authors []string
	err := s.DB.Model(&models.PaperAuthor{}).
		Select("authors.name").
		Joins("JOIN authors ON authors.author_id = paper_authors.author_id").
		Where("paper_authors.paper_id = ?", id).
		Order("paper_authors.author_order").
		Scan(&authors).Error
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading authors for %s: %w", id, err)
	}

	var categories []string
	err = s.DB.Model(&models.PaperCategory{}).
		Select("category_code").
		Where("paper_id = ?", id).
		Order("category_code").
		Scan(&categories).Error
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading categories for %s: %w", id, err)
	}
	return &paper, authors, categories, nil
}
