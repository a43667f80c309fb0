package arxiv

import (
	"encoding/xml"
	"strings"
	"time"
)

// Feed is the top-level structure of an arXiv Atom API response.
type Feed struct {
	XMLName      xml.Name `xml:"feed"`
	TotalResults int      `xml:"totalResults"`
	StartIndex   int      `xml:"startIndex"`
	Entries      []Entry  `xml:"entry"`
}

// Entry is a single paper in the API response.
type Entry struct {
	ID              string     `xml:"id"`
	Title           string     `xml:"title"`
	Summary         string     `xml:"summary"`
	Published       string     `xml:"published"`
	Updated         string     `xml:"updated"`
	Authors         []Author   `xml:"author"`
	Links           []Link     `xml:"link"`
	Categories      []Category `xml:"category"`
	PrimaryCategory Category   `xml:"primary_category"`
	JournalRef      string     `xml:"journal_ref"`
	DOI             string     `xml:"doi"`
}

// Author is a single author element.
type Author struct {
	Name string `xml:"name"`
}

// Link is a single link element; the PDF link carries title="pdf".
type Link struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

// Category is a category element; Term holds the code (e.g. "cs.AI").
type Category struct {
	Term string `xml:"term,attr"`
}

// parseAtomTime parses the RFC3339 timestamps used by the Atom feed.
func parseAtomTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// pdfLink picks the PDF link out of an entry's link list, falling back to
// the canonical arxiv.org URL derived from the entry identifier.
func pdfLink(entry *Entry) string {
	for _, link := range entry.Links {
		if link.Title == "pdf" || link.Type == "application/pdf" {
			return link.Href
		}
	}
	if id := entry.ID; id != "" {
		if idx := strings.LastIndex(id, "/"); idx >= 0 && idx < len(id)-1 {
			return "https://arxiv.org/pdf/" + id[idx+1:]
		}
	}
	return ""
}
