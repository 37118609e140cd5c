// Package extract downloads paper PDFs and pulls their plain text for
// summarization.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// Extractor caches downloaded PDFs on disk and extracts their text.
type Extractor struct {
	dir  string
	http *http.Client
}

// New builds an Extractor storing PDFs under dir.
func New(dir string) *Extractor {
	return &Extractor{
		dir:  dir,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// Download fetches the paper PDF into the cache directory, reusing a
// previously downloaded copy when it is still a valid PDF. It returns
// the local file path.
func (e *Extractor) Download(ctx context.Context, paperID, pdfURL string) (string, error) {
	if pdfURL == "" {
		return "", fmt.Errorf("extract: paper %s has no pdf url", paperID)
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("extract: create cache dir: %w", err)
	}

	path := filepath.Join(e.dir, sanitizeID(paperID)+".pdf")
	if data, err := os.ReadFile(path); err == nil {
		if validPDF(data) {
			return path, nil
		}
		// A truncated earlier download; fetch again.
		os.Remove(path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return "", fmt.Errorf("extract: build request: %w", err)
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("extract: download %s: %w", paperID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("extract: download %s: status %d", paperID, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("extract: read body: %w", err)
	}
	if !validPDF(data) {
		return "", fmt.Errorf("extract: %s: response is not a pdf", paperID)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("extract: write pdf: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("extract: move pdf: %w", err)
	}
	return path, nil
}

// Extract returns the plain text of a downloaded PDF.
func (e *Extractor) Extract(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("extract: open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var buf bytes.Buffer
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract: text of %s: %w", filepath.Base(path), err)
	}
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("extract: read text: %w", err)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", fmt.Errorf("extract: %s contains no extractable text", filepath.Base(path))
	}
	return text, nil
}

// ReadPDF returns the raw bytes of a cached PDF for email attachment.
func (e *Extractor) ReadPDF(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// validPDF checks the magic header and the end-of-file trailer.
func validPDF(data []byte) bool {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return false
	}
	tail := data
	if len(tail) > 1024 {
		tail = tail[len(tail)-1024:]
	}
	return bytes.Contains(tail, []byte("%%EOF"))
}

// sanitizeID makes a paper id safe as a file name.
func sanitizeID(id string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(id)
}
