package models

import "time"

// PaperRecord is one paper as returned by the arXiv search API.
// Immutable once fetched; the ID is the versioned accession string
// (e.g. "2301.07041v2") and is unique within a topic's dedup scope.
type PaperRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Authors     []string  `json:"authors"`
	Abstract    string    `json:"abstract"`
	Categories  []string  `json:"categories"`
	PDFURL      string    `json:"pdf_url"`
	PublishedAt time.Time `json:"published_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProcessedEntry is the persisted record that a paper has been summarized
// for a topic. It carries enough metadata to re-render the paper in a
// digest without re-fetching or re-summarizing.
type ProcessedEntry struct {
	PaperID     string    `json:"paper_id"`
	Title       string    `json:"title"`
	Authors     []string  `json:"authors"`
	PDFURL      string    `json:"pdf_url"`
	Summary     string    `json:"summary"`
	Categories  []string  `json:"categories"`
	ProcessedAt time.Time `json:"processed_at"`
}
