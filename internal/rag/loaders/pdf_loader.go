package loaders

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/LucassCPS/private-legal-assistant/internal/rag/interfaces"
	"github.com/LucassCPS/private-legal-assistant/internal/rag/schema"
)

var (
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// PDFLoader implements the Loader interface for reading PDF files.
type PDFLoader struct{}

// NewPDFLoader creates a new PDFLoader.
func NewPDFLoader() *PDFLoader {
	return &PDFLoader{}
}

// Load reads a PDF file, extracts and normalizes the text of each page, and
// returns one Document per non-empty page. Page numbers are 1-based.
func (l *PDFLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	source := filepath.Base(path)

	var documents []*schema.Document
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from %s page %d: %w", source, i, err)
		}

		text = NormalizeWhitespace(text)
		if text == "" {
			continue
		}

		documents = append(documents, &schema.Document{
			Text: text,
			Metadata: map[string]interface{}{
				schema.MetadataKeySource: source,
				schema.MetadataKeyPage:   i,
			},
		})
	}

	return documents, nil
}

// LoadDir loads every .pdf file in the given directory, in lexical order so
// that chunk identifiers derived from the result are stable across runs.
func (l *PDFLoader) LoadDir(ctx context.Context, dir string) ([]*schema.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var all []*schema.Document
	for _, name := range names {
		docs, err := l.Load(ctx, filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		all = append(all, docs...)
	}
	return all, nil
}

// NormalizeWhitespace collapses runs of spaces and tabs into a single space,
// trims trailing whitespace from each line, and limits consecutive blank
// lines to one. Paragraph boundaries are preserved for the splitter.
func NormalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = spaceRuns.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	text = strings.Join(lines, "\n")

	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// compile-time check to ensure PDFLoader implements the Loader interface
var _ interfaces.Loader = (*PDFLoader)(nil)
