package services

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"arxiv-hand/models"
	"arxiv-hand/providers"
)

// ErrMissingID is returned for records without an identifier. Such records
// are dropped with a warning by the caller; nothing else rejects a record.
var ErrMissingID = errors.New("record has no identifier")

// Normalizer converts raw catalog records into the canonical storage shape.
// It is pure: no I/O, no mutation of its input.
type Normalizer struct {
	Logger *zap.Logger
}

// NewNormalizer creates a new record normalizer.
func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{Logger: logger}
}

// Normalize shapes one raw record into a Paper plus its ordered author names
// and category codes. A missing title becomes an empty string; a missing
// identifier is the only fatal defect.
func (n *Normalizer) Normalize(rec providers.RawRecord) (*models.Paper, []string, []string, error) {
	id := paperID(rec.EntryURL)
	if id == "" {
		return nil, nil, nil, ErrMissingID
	}

	paper := &models.Paper{
		ID:                  id,
		Title:               rec.Title,
		Abstract:            strings.ReplaceAll(rec.Summary, "\n", " "),
		PrimaryCategoryCode: rec.PrimaryCategory,
		PDFURL:              rec.PDFURL,
		ArxivPublishedAt:    rec.Published,
		ArxivUpdatedAt:      rec.Updated,
	}
	if rec.JournalRef != "" {
		paper.JournalRef = strPtr(rec.JournalRef)
	}
	if rec.DOI != "" {
		paper.DOI = strPtr(rec.DOI)
	}

	var authors []string
	for _, name := range rec.Authors {
		if strings.TrimSpace(name) == "" {
			continue
		}
		authors = append(authors, name)
	}

	var categories []string
	for _, code := range rec.Categories {
		if code == "" {
			continue
		}
		categories = append(categories, code)
	}

	return paper, authors, categories, nil
}

// paperID derives the versioned identifier from the entry URL, e.g.
// "http://arxiv.org/abs/2401.12345v1" -> "2401.12345v1". Versions are kept:
// each version is a distinct paper row.
func paperID(entryURL string) string {
	s := strings.TrimSpace(entryURL)
	s = strings.TrimRight(s, "/")
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		s = s[idx+1:]
	}
	return s
}

// strPtr returns a pointer to a string value.
func strPtr(s string) *string {
	return &s
}
