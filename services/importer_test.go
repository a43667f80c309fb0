package services

import (
	"fmt"
	"testing"

	"go.uber.org/zap"

	"arxiv-hand/models"
)

func TestImportBasic(t *testing.T) {
	db := openTestDB(t)
	im := NewImporter(db, zap.NewNop())

	records := []ImportRecord{
		{
			ID:                  "2401.00001v1",
			Title:               "First",
			Abstract:            "abstract one",
			PrimaryCategoryCode: "cs.AI",
			ArxivPublishedAt:    "2024-01-15T10:00:00Z",
			Authors:             []string{"Alice", "Bob"},
			Categories:          []string{"cs.AI", "cs.LG"},
		},
		{
			ID:      "2401.00002v1",
			Title:   "Second",
			Authors: []string{"Alice"},
		},
	}
	stats, err := im.Import(records)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.Imported != 2 || stats.Skipped != 0 {
		t.Errorf("stats = %+v, want 2 imported", stats)
	}

	var papers, authors, authorLinks, catLinks int64
	db.Model(&models.Paper{}).Count(&papers)
	db.Model(&models.Author{}).Count(&authors)
	db.Model(&models.PaperAuthor{}).Count(&authorLinks)
	db.Model(&models.PaperCategory{}).Count(&catLinks)
	if papers != 2 || authors != 2 || authorLinks != 3 || catLinks != 2 {
		t.Errorf("counts = papers %d, authors %d, author links %d, category links %d",
			papers, authors, authorLinks, catLinks)
	}

	var got models.Paper
	if err := db.Take(&got, "id = ?", "2401.00001v1").Error; err != nil {
		t.Fatal(err)
	}
	if got.ArxivPublishedAt == nil {
		t.Error("published timestamp not parsed")
	}
}

func TestImportSkipsRecordsWithoutID(t *testing.T) {
	db := openTestDB(t)
	im := NewImporter(db, zap.NewNop())

	stats, err := im.Import([]ImportRecord{
		{Title: "no id"},
		{ID: "2401.00003v1", Title: "ok"},
	})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.Imported != 1 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want 1 imported, 1 skipped", stats)
	}
}

func TestImportDoesNotTouchExistingPapers(t *testing.T) {
	db := openTestDB(t)
	if err := db.Create(&models.Paper{ID: "2401.00004v1", Title: "Original"}).Error; err != nil {
		t.Fatal(err)
	}

	im := NewImporter(db, zap.NewNop())
	_, err := im.Import([]ImportRecord{{ID: "2401.00004v1", Title: "Overwrite Attempt"}})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	var got models.Paper
	if err := db.Take(&got, "id = ?", "2401.00004v1").Error; err != nil {
		t.Fatal(err)
	}
	if got.Title != "Original" {
		t.Errorf("title = %q, import must not overwrite existing rows", got.Title)
	}
}

func TestImportFlushesInBatches(t *testing.T) {
	db := openTestDB(t)
	im := NewImporter(db, zap.NewNop())
	im.FlushSize = 3

	var records []ImportRecord
	for i := 0; i < 10; i++ {
		records = append(records, ImportRecord{
			ID:      fmt.Sprintf("2401.1%04dv1", i),
			Title:   fmt.Sprintf("Paper %d", i),
			Authors: []string{fmt.Sprintf("Author %d", i%4)},
		})
	}
	stats, err := im.Import(records)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.Imported != 10 {
		t.Errorf("imported = %d, want 10", stats.Imported)
	}

	var papers, authors int64
	db.Model(&models.Paper{}).Count(&papers)
	db.Model(&models.Author{}).Count(&authors)
	if papers != 10 {
		t.Errorf("papers = %d, want 10", papers)
	}
	// Four distinct names reused across batches must not duplicate.
	if authors != 4 {
		t.Errorf("authors = %d, want 4", authors)
	}
}

func TestImportKeepsEarlierFlushWindowsOnFailure(t *testing.T) {
	db := openTestDB(t)
	im := NewImporter(db, zap.NewNop())
	im.FlushSize = 2

	// Only the second window carries category links, so with the link table
	// gone the first window's transaction commits and the second one fails.
	if err := db.Migrator().DropTable(&models.PaperCategory{}); err != nil {
		t.Fatal(err)
	}
	var records []ImportRecord
	for i := 0; i < 4; i++ {
		rec := ImportRecord{
			ID:      fmt.Sprintf("2401.2%04dv1", i),
			Title:   fmt.Sprintf("Paper %d", i),
			Authors: []string{fmt.Sprintf("Author %d", i)},
		}
		if i >= 2 {
			rec.Categories = []string{"cs.AI"}
		}
		records = append(records, rec)
	}

	if _, err := im.Import(records); err == nil {
		t.Fatal("expected error from missing table")
	}

	var papers, authors int64
	db.Model(&models.Paper{}).Count(&papers)
	db.Model(&models.Author{}).Count(&authors)
	if papers != 2 || authors != 2 {
		t.Errorf("rows after failed window = papers %d, authors %d; want the committed window's 2, 2", papers, authors)
	}
	var got models.Paper
	if err := db.Take(&got, "id = ?", "2401.20000v1").Error; err != nil {
		t.Errorf("first window's paper missing: %v", err)
	}
	if err := db.Take(&got, "id = ?", "2401.20002v1").Error; err == nil {
		t.Error("failing window's paper should not have been committed")
	}
}

func TestImportIsRepeatable(t *testing.T) {
	db := openTestDB(t)
	im := NewImporter(db, zap.NewNop())

	records := []ImportRecord{{
		ID: "2401.00005v1", Title: "Replay",
		Authors: []string{"Carol"}, Categories: []string{"cs.DB"},
	}}
	for i := 0; i < 2; i++ {
		if _, err := im.Import(records); err != nil {
			t.Fatalf("Import %d: %v", i, err)
		}
	}

	var papers, authorLinks, catLinks int64
	db.Model(&models.Paper{}).Count(&papers)
	db.Model(&models.PaperAuthor{}).Count(&authorLinks)
	db.Model(&models.PaperCategory{}).Count(&catLinks)
	if papers != 1 || authorLinks != 1 || catLinks != 1 {
		t.Errorf("counts after replay = %d, %d, %d; want all 1", papers, authorLinks, catLinks)
	}
}
