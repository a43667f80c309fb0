package providers

import "time"

// RawRecord is one bibliographic record as reported by a catalog source,
// before normalization. Fields are optional unless noted; nothing beyond
// this struct crosses the provider boundary.
type RawRecord struct {
	EntryURL        string
	Title           string
	Summary         string
	Authors         []string
	Categories      []string
	PrimaryCategory string
	PDFURL          string
	Published       *time.Time
	Updated         *time.Time
	JournalRef      string
	DOI             string
}

// Provider is the interface every catalog source must implement.
type Provider interface {
	// FetchDay returns the records submitted in the given category on the
	// given UTC calendar day, in ascending submission order, up to max
	// records (0 = unbounded). On error the records materialized so far are
	// returned alongside it; the caller decides whether partials are usable.
	FetchDay(category string, day time.Time, max int) ([]RawRecord, error)

	// Name returns the unique name of the provider (e.g. "arxiv").
	Name() string
}
