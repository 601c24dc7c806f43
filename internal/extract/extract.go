// Package extract defines the document-text-extraction collaborator.
// Real deck formats are handled outside this service; the core only
// consumes an ordered sequence of page texts.
package extract

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Extractor produces an ordered sequence of page-text strings from an
// uploaded document.
type Extractor interface {
	Pages(ctx context.Context, r io.Reader, filename string) ([]string, error)
}

// PlainText splits plain-text input into pages on form feeds, or on
// blank lines when no form feeds appear. Useful for tests and local
// development.
type PlainText struct{}

func (PlainText) Pages(ctx context.Context, r io.Reader, filename string) ([]string, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	text := sb.String()
	separator := "\f"
	if !strings.Contains(text, separator) {
		separator = "\n\n"
	}

	var pages []string
	for _, chunk := range strings.Split(text, separator) {
		if trimmed := strings.TrimSpace(chunk); trimmed != "" {
			pages = append(pages, trimmed)
		}
	}
	return pages, nil
}
