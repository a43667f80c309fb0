package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"arxiv-hand/config"
	"arxiv-hand/models"
	"arxiv-hand/providers"
)

// stubProvider serves canned records per category and can fail selectively.
type stubProvider struct {
	records  map[string][]providers.RawRecord
	failures map[string]error
	calls    []string
}

func (p *stubProvider) FetchDay(category string, day time.Time, max int) ([]providers.RawRecord, error) {
	p.calls = append(p.calls, category)
	if err, ok := p.failures[category]; ok {
		return p.records[category], err
	}
	return p.records[category], nil
}

func (p *stubProvider) Name() string { return "stub" }

func stubRecord(id, category string) providers.RawRecord {
	return providers.RawRecord{
		EntryURL:        "http://arxiv.org/abs/" + id,
		Title:           "Paper " + id,
		PrimaryCategory: category,
		Categories:      []string{category},
	}
}

func newTestFetchService(t *testing.T, provider providers.Provider) *FetchService {
	t.Helper()
	svc := NewFetchService(&config.Config{}, newTestStore(t), provider, zap.NewNop())
	// Single small tier, no pauses, to keep runs instant.
	svc.Tiers = []TierConfig{
		{Name: "test", Categories: []string{"cs.AI", "cs.LG", "cs.DB"}, GroupSize: 3, MaxResults: 10},
	}
	svc.InterDayPause = -1
	return svc
}

func TestRunForDateAppliesAllCategories(t *testing.T) {
	provider := &stubProvider{
		records: map[string][]providers.RawRecord{
			"cs.AI": {stubRecord("2401.00001v1", "cs.AI")},
			"cs.LG": {stubRecord("2401.00002v1", "cs.LG"), stubRecord("2401.00003v1", "cs.LG")},
		},
	}
	svc := newTestFetchService(t, provider)

	applied := svc.RunForDate(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if applied != 3 {
		t.Errorf("applied = %d, want 3", applied)
	}
	if len(provider.calls) != 3 {
		t.Errorf("provider calls = %v, want all three categories", provider.calls)
	}

	var count int64
	svc.Store.DB.Model(&models.Paper{}).Count(&count)
	if count != 3 {
		t.Errorf("stored papers = %d, want 3", count)
	}
}

func TestRunForDateIsolatesCategoryFailure(t *testing.T) {
	provider := &stubProvider{
		records: map[string][]providers.RawRecord{
			"cs.AI": {stubRecord("2401.00010v1", "cs.AI")},
			"cs.LG": {stubRecord("2401.00011v1", "cs.LG")},
		},
		failures: map[string]error{"cs.AI": errors.New("api down")},
	}
	svc := newTestFetchService(t, provider)

	applied := svc.RunForDate(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	// Partials from the failed category are still applied, and the failure
	// does not stop the remaining categories.
	if applied != 2 {
		t.Errorf("applied = %d, want 2", applied)
	}
	if len(provider.calls) != 3 {
		t.Errorf("provider calls = %v, failure must not abort the run", provider.calls)
	}
}

func TestRunForDateSkipsBrokenRecords(t *testing.T) {
	provider := &stubProvider{
		records: map[string][]providers.RawRecord{
			"cs.AI": {
				{Title: "no entry url"},
				stubRecord("2401.00020v1", "cs.AI"),
			},
		},
	}
	svc := newTestFetchService(t, provider)

	applied := svc.RunForDate(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if applied != 1 {
		t.Errorf("applied = %d, want 1 (broken record skipped)", applied)
	}
}

func TestRunRangeCoversInclusiveDays(t *testing.T) {
	provider := &stubProvider{
		records: map[string][]providers.RawRecord{},
	}
	svc := newTestFetchService(t, provider)

	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC)
	svc.RunRange(start, end)

	// Three categories per day over three days.
	if len(provider.calls) != 9 {
		t.Errorf("provider calls = %d, want 9", len(provider.calls))
	}
}

func TestDefaultTiersCoverAllCategories(t *testing.T) {
	all := AllCategories()
	if len(all) != 40 {
		t.Errorf("total categories = %d, want 40", len(all))
	}
	seen := make(map[string]bool)
	for _, c := range all {
		if seen[c] {
			t.Errorf("category %s listed twice", c)
		}
		seen[c] = true
	}

	tiers := DefaultTiers()
	if len(tiers) != 3 {
		t.Fatalf("tiers = %d, want 3", len(tiers))
	}
	if tiers[0].MaxResults <= tiers[1].MaxResults || tiers[1].MaxResults <= tiers[2].MaxResults {
		t.Errorf("result caps should shrink with volume: %d, %d, %d",
			tiers[0].MaxResults, tiers[1].MaxResults, tiers[2].MaxResults)
	}
}

func TestRunForDatePausesAfterEveryGroup(t *testing.T) {
	provider := &stubProvider{records: map[string][]providers.RawRecord{}}
	svc := NewFetchService(&config.Config{}, newTestStore(t), provider, zap.NewNop())
	svc.Tiers = []TierConfig{
		{Name: "a", Categories: []string{"cs.AI", "cs.LG"}, GroupSize: 1, MaxResults: 10, Pause: 20 * time.Millisecond},
		{Name: "b", Categories: []string{"cs.DB"}, GroupSize: 1, MaxResults: 10, Pause: 20 * time.Millisecond},
	}

	start := time.Now()
	svc.RunForDate(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	elapsed := time.Since(start)

	// Three single-category groups, each followed by its tier pause. The
	// pause after a tier's last group keeps the gap before the next tier.
	if elapsed < 60*time.Millisecond {
		t.Errorf("elapsed = %v, want at least one pause per group", elapsed)
	}
}

func TestParseYMD(t *testing.T) {
	got, err := ParseYMD("20240115")
	if err != nil {
		t.Fatalf("ParseYMD: %v", err)
	}
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseYMD = %v, want %v", got, want)
	}

	for _, bad := range []string{"2024-01-15", "2024011", "notadate", "20241340"} {
		if _, err := ParseYMD(bad); err == nil {
			t.Errorf("ParseYMD(%q) accepted invalid input", bad)
		}
	}
}

func TestRunForDateCountsAcrossTiers(t *testing.T) {
	records := map[string][]providers.RawRecord{}
	for i, cat := range []string{"cs.AI", "cs.CR", "cs.AR"} {
		records[cat] = []providers.RawRecord{stubRecord(fmt.Sprintf("2401.1%04dv1", i), cat)}
	}
	provider := &stubProvider{records: records}

	svc := NewFetchService(&config.Config{}, newTestStore(t), provider, zap.NewNop())
	svc.Tiers = []TierConfig{
		{Name: "high", Categories: []string{"cs.AI"}, GroupSize: 1, MaxResults: 500},
		{Name: "medium", Categories: []string{"cs.CR"}, GroupSize: 2, MaxResults: 300},
		{Name: "low", Categories: []string{"cs.AR"}, GroupSize: 5, MaxResults: 150},
	}

	applied := svc.RunForDate(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if applied != 3 {
		t.Errorf("applied = %d, want one paper per tier", applied)
	}
}
