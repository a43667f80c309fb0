package services

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"arxiv-hand/models"
)

func TestFormatTsQuery(t *testing.T) {
	cases := []struct {
		in     string
		prefix bool
		want   string
	}{
		{"neural networks", false, "neural & networks"},
		{"neural networks", true, "neural:* & networks:*"},
		{"  spaced   out  ", false, "spaced & out"},
		{"c++ & (hacks)", false, "c & hacks"},
		{"!!!", false, ""},
		{"", true, ""},
		{"GPT-4 review", false, "GPT4 & review"},
	}
	for _, c := range cases {
		if got := FormatTsQuery(c.in, c.prefix); got != c.want {
			t.Errorf("FormatTsQuery(%q, %v) = %q, want %q", c.in, c.prefix, got, c.want)
		}
	}
}

func TestKeywordRejectsUnsearchableQuery(t *testing.T) {
	svc := NewSearchService(openTestDB(t), nil, zap.NewNop())
	results, err := svc.Keyword("!!! ???", 10)
	if err != nil {
		t.Fatalf("Keyword: %v", err)
	}
	if results != nil {
		t.Errorf("results = %v, want none without hitting the database", results)
	}
}

func TestSuggestShortTermYieldsNothing(t *testing.T) {
	svc := NewSearchService(openTestDB(t), nil, zap.NewNop())
	titles, err := svc.Suggest("ab")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if titles != nil {
		t.Errorf("titles = %v, want none for short terms", titles)
	}
}

func seedQueryPapers(t *testing.T, svc *SearchService) {
	t.Helper()
	days := []struct {
		id, cat string
		day     int
	}{
		{"2401.00001v1", "cs.AI", 10},
		{"2401.00002v1", "cs.LG", 12},
		{"2401.00003v1", "cs.AI", 14},
	}
	for _, d := range days {
		at := time.Date(2024, 1, d.day, 12, 0, 0, 0, time.UTC)
		p := models.Paper{ID: d.id, Title: d.id, PrimaryCategoryCode: d.cat, ArxivPublishedAt: &at}
		if err := svc.DB.Create(&p).Error; err != nil {
			t.Fatal(err)
		}
	}
}

func TestQueryFiltersByCategoryAndWindow(t *testing.T) {
	svc := NewSearchService(openTestDB(t), nil, zap.NewNop())
	seedQueryPapers(t, svc)

	papers, err := svc.Query(PaperQuery{Category: "cs.AI"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("papers = %d, want 2", len(papers))
	}
	// Newest first.
	if papers[0].ID != "2401.00003v1" {
		t.Errorf("first = %s, want newest", papers[0].ID)
	}

	from := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC)
	papers, err = svc.Query(PaperQuery{From: &from, To: &to})
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 1 || papers[0].ID != "2401.00002v1" {
		t.Errorf("window query = %v, want only the middle paper", papers)
	}
}

func TestGetLoadsAuthorsInOrder(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db, zap.NewNop())
	svc := NewSearchService(db, nil, zap.NewNop())

	paper := &models.Paper{ID: "2401.00010v1", Title: "Ordered", PrimaryCategoryCode: "cs.AI"}
	if err := store.ApplyPaper(paper, []string{"Zed Young", "Amy Old"}, []string{"cs.AI", "cs.LG"}); err != nil {
		t.Fatal(err)
	}

	got, authors, categories, err := svc.Get("2401.00010v1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Ordered" {
		t.Errorf("title = %q", got.Title)
	}
	if len(authors) != 2 || authors[0] != "Zed Young" || authors[1] != "Amy Old" {
		t.Errorf("authors = %v, want source order not alphabetical", authors)
	}
	if len(categories) != 2 {
		t.Errorf("categories = %v, want both links", categories)
	}
}

func TestGetUnknownPaper(t *testing.T) {
	svc := NewSearchService(openTestDB(t), nil, zap.NewNop())
	if _, _, _, err := svc.Get("nope"); err == nil {
		t.Fatal("expected error for unknown paper")
	}
}
