// Package arxiv fetches recent paper metadata from the arXiv Atom API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dywsy21/Cecilia/internal/config"
	"github.com/dywsy21/Cecilia/internal/models"
)

// Fetcher queries the arXiv export API for the latest papers on a topic.
type Fetcher struct {
	baseURL    string
	maxResults int
	http       *http.Client
}

// New builds a Fetcher from configuration.
func New(cfg config.ArxivConfig) *Fetcher {
	return &Fetcher{
		baseURL:    cfg.BaseURL,
		maxResults: cfg.MaxResults,
		http:       &http.Client{Timeout: cfg.FetchTimeout()},
	}
}

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
	Authors    []atomAuthor   `xml:"author"`
	Links      []atomLink     `xml:"link"`
	Categories []atomCategory `xml:"category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

// Fetch returns the most recently updated papers matching the topic
// within the category, newest first. Category "all" searches every
// field.
func (f *Fetcher) Fetch(ctx context.Context, sub models.Subscription) ([]models.PaperRecord, error) {
	query := buildQuery(sub)

	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprintf("%d", f.maxResults))
	params.Set("sortBy", "lastUpdatedDate")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: build request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: query %s: %w", sub, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: query %s: status %d", sub, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("arxiv: read response: %w", err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv: parse feed: %w", err)
	}

	papers := make([]models.PaperRecord, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		paper, ok := entryToPaper(entry)
		if !ok {
			continue
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

// buildQuery maps a subscription to the API search expression. A bare
// topic searches all fields, a category constrains it to that listing.
func buildQuery(sub models.Subscription) string {
	if sub.Category == "" || strings.EqualFold(sub.Category, "all") {
		return fmt.Sprintf("all:%s", sub.Topic)
	}
	return fmt.Sprintf("cat:%s.%s", sub.Category, sub.Topic)
}

// entryToPaper converts one Atom entry, dropping malformed ones rather
// than failing the whole feed.
func entryToPaper(entry atomEntry) (models.PaperRecord, bool) {
	id := paperID(entry.ID)
	if id == "" {
		return models.PaperRecord{}, false
	}

	authors := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	categories := make([]string, 0, len(entry.Categories))
	for _, c := range entry.Categories {
		if c.Term != "" {
			categories = append(categories, c.Term)
		}
	}

	return models.PaperRecord{
		ID:          id,
		Title:       collapseWhitespace(entry.Title),
		Authors:     authors,
		Abstract:    strings.TrimSpace(entry.Summary),
		Categories:  categories,
		PDFURL:      pdfLink(entry),
		PublishedAt: parseTime(entry.Published),
		UpdatedAt:   parseTime(entry.Updated),
	}, true
}

// paperID extracts the versioned identifier from the entry's id URL,
// e.g. "http://arxiv.org/abs/2401.12345v2" becomes "2401.12345v2".
func paperID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if idx := strings.LastIndex(raw, "/"); idx >= 0 {
		raw = raw[idx+1:]
	}
	return raw
}

// pdfLink prefers the link titled "pdf", falling back to rewriting the
// abstract URL.
func pdfLink(entry atomEntry) string {
	for _, link := range entry.Links {
		if link.Title == "pdf" {
			return link.Href
		}
	}
	if strings.Contains(entry.ID, "/abs/") {
		return strings.Replace(entry.ID, "/abs/", "/pdf/", 1)
	}
	return ""
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}
	}
	return t
}

// collapseWhitespace flattens the newline-wrapped titles the feed emits.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
