package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

// Paragraph, line and word breaks are preferred in that order; the empty
// separator bounds windows that contain none of them.
var separators = []string{"\n\n", "\n", " ", ""}

// Split cuts text into windows of at most size runes that share up to
// overlap runes with the previous window. Whitespace-only windows are
// dropped.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, nil
	}

	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators(separators),
		textsplitter.WithLenFunc(utf8.RuneCountInString),
	)

	windows, err := splitter.SplitText(text)
	if err != nil {
		return nil, err
	}

	chunks := make([]string, 0, len(windows))
	for _, window := range windows {
		if chunk := strings.TrimSpace(window); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	return chunks, nil
}
