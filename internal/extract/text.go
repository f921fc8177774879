package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned when no strategy produced readable text from a PDF.
var ErrNoText = errors.New("no readable text could be extracted from PDF")

// ExtractPages decodes the text of each PDF page. Statement PDFs vary in how
// they encode text, so several strategies are tried in order of layout
// fidelity; the first one whose output passes the readability gate wins. A
// scanned or custom-font PDF that defeats every strategy fails with ErrNoText
// rather than returning garbage.
func ExtractPages(data []byte) ([]string, error) {
	pages, err := extractWithLibrary(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoText, err)
	}
	if !isReadableText(pages) {
		return nil, ErrNoText
	}
	return pages, nil
}

// extractWithLibrary runs the ledongthuc/pdf strategies. The library panics
// on some malformed PDFs, so the whole pass runs under recover.
func extractWithLibrary(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	numPages := r.NumPage()
	if numPages == 0 {
		return nil, errors.New("PDF has no pages")
	}

	// Row extraction preserves the table layout best.
	pages = extractByRow(r, numPages)
	if isReadableText(pages) {
		return pages, nil
	}

	// Rebuild rows from raw text coordinates.
	pages = extractByContent(r, numPages)
	if isReadableText(pages) {
		return pages, nil
	}

	// Plain text per page with the page's font map.
	pages = extractByPlainText(r, numPages)
	if isReadableText(pages) {
		return pages, nil
	}

	// Whole-document plain text, a different decode path in the library.
	if text := extractByReaderPlainText(r); isReadableText([]string{text}) {
		return []string{text}, nil
	}

	return pages, nil
}

func extractByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// extractByContent groups text objects into rows by Y coordinate and orders
// them by X, inserting a column gap marker for large horizontal jumps.
func extractByContent(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		if len(content.Text) == 0 {
			continue
		}

		type textItem struct {
			x float64
			s string
		}
		rowMap := make(map[int][]textItem)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			yKey := int(math.Round(t.Y))
			rowMap[yKey] = append(rowMap[yKey], textItem{x: t.X, s: t.S})
		}

		// PDF Y runs bottom-to-top.
		yKeys := make([]int, 0, len(rowMap))
		for y := range rowMap {
			yKeys = append(yKeys, y)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(yKeys)))

		var lines []string
		for _, y := range yKeys {
			items := rowMap[y]
			sort.Slice(items, func(a, b int) bool {
				return items[a].x < items[b].x
			})
			var parts []string
			var prevX float64
			for j, item := range items {
				if j > 0 && item.x-prevX > 15 {
					parts = append(parts, "  ")
				}
				parts = append(parts, item.s)
				prevX = item.x
			}
			line := strings.TrimSpace(strings.Join(parts, ""))
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func extractByPlainText(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		fontNames := page.Fonts()
		fonts := make(map[string]*pdf.Font, len(fontNames))
		for _, name := range fontNames {
			f := page.Font(name)
			fonts[name] = &f
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return pages
}

func extractByReaderPlainText(r *pdf.Reader) string {
	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// statementWords are tokens present in virtually every statement from this
// bank family. Extraction output containing none of them is treated as
// garbage from an undecodable font.
var statementWords = []string{
	"estado de cuenta", "cuenta", "saldo", "periodo", "clabe", "bbva",
	"cargos", "abonos", "movimientos", "total", "cliente", "fecha",
}

func containsStatementWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range statementWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// textQuality returns the ratio of characters that belong in decoded
// statement text. The check is deliberately narrow: identity-encoded fonts
// produce runs of accented garbage that a unicode.IsLetter test would accept.
func textQuality(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
				readable++
			case r == ' ', r == '\n', r == '\t', r == '\r':
				readable++
			case strings.ContainsRune(`.,-/:;()'"$%&@#!?+=*`, r):
				readable++
			case r == 'Á', r == 'É', r == 'Í', r == 'Ó', r == 'Ú', r == 'Ñ',
				r == 'á', r == 'é', r == 'í', r == 'ó', r == 'ú', r == 'ñ':
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}

// isReadableText gates each strategy's output: enough text, mostly readable
// characters, and at least one word a real statement would contain.
func isReadableText(pages []string) bool {
	if totalTextLen(pages) <= 50 {
		return false
	}
	if textQuality(pages) <= 0.6 {
		return false
	}
	return containsStatementWords(pages)
}
