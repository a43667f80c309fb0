package services

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"arxiv-hand/providers"
)

func TestNormalizeFullRecord(t *testing.T) {
	n := NewNormalizer(zap.NewNop())
	published := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	paper, authors, categories, err := n.Normalize(providers.RawRecord{
		EntryURL:        "http://arxiv.org/abs/2401.12345v2",
		Title:           "A Study",
		Summary:         "Line one\nline two\nline three",
		Authors:         []string{"Alice", "", "  ", "Bob"},
		Categories:      []string{"cs.LG", "", "cs.AI"},
		PrimaryCategory: "cs.LG",
		PDFURL:          "https://arxiv.org/pdf/2401.12345v2",
		Published:       &published,
		JournalRef:      "J. Test 1 (2024)",
		DOI:             "10.1000/test",
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if paper.ID != "2401.12345v2" {
		t.Errorf("id = %q, want versioned last URL segment", paper.ID)
	}
	if paper.Abstract != "Line one line two line three" {
		t.Errorf("abstract = %q, newlines not flattened", paper.Abstract)
	}
	if len(authors) != 2 || authors[0] != "Alice" || authors[1] != "Bob" {
		t.Errorf("authors = %v, blank names should be dropped", authors)
	}
	if len(categories) != 2 {
		t.Errorf("categories = %v, empty codes should be dropped", categories)
	}
	if paper.JournalRef == nil || *paper.JournalRef != "J. Test 1 (2024)" {
		t.Errorf("journal ref not carried over")
	}
	if paper.DOI == nil || *paper.DOI != "10.1000/test" {
		t.Errorf("doi not carried over")
	}
}

func TestNormalizeMissingID(t *testing.T) {
	n := NewNormalizer(zap.NewNop())
	_, _, _, err := n.Normalize(providers.RawRecord{Title: "No URL"})
	if !errors.Is(err, ErrMissingID) {
		t.Fatalf("err = %v, want ErrMissingID", err)
	}
}

func TestNormalizeMissingTitle(t *testing.T) {
	n := NewNormalizer(zap.NewNop())
	paper, _, _, err := n.Normalize(providers.RawRecord{
		EntryURL: "http://arxiv.org/abs/2401.99999v1",
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if paper.Title != "" {
		t.Errorf("title = %q, want empty string", paper.Title)
	}
}

func TestNormalizeEmptyOptionalFieldsStayNull(t *testing.T) {
	n := NewNormalizer(zap.NewNop())
	paper, _, _, err := n.Normalize(providers.RawRecord{
		EntryURL: "http://arxiv.org/abs/2401.55555v1",
		Title:    "t",
	})
	if err != nil {
		t.Fatal(err)
	}
	if paper.JournalRef != nil || paper.DOI != nil {
		t.Errorf("empty journal ref / doi should stay nil")
	}
}
