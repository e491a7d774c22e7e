// Package extractor converts raw OCR text from a receipt into structured
// line items. Extraction is best-effort: each text line is either accepted
// as a (quantity, name, price) record or dropped silently, so a noisy scan
// degrades to a shorter item list rather than an error.
package extractor

import (
	"iter"
	"regexp"
	"strconv"
	"strings"

	"splitbill/internal/models"
)

// linePattern matches a candidate receipt line: a leading integer quantity,
// a free-text item name, and a trailing numeric price token, anchored to
// the full line.
var linePattern = regexp.MustCompile(`^(\d+)\s+(.+)\s+([\d.,]+)$`)

var nonDigit = regexp.MustCompile(`\D`)

// Extractor turns receipt text into line items, skipping lines that match
// its noise-keyword deny list. The zero value is not usable; construct
// with New or WithKeywords.
type Extractor struct {
	keywords []string // lower-cased
}

// New returns an Extractor using the default noise-keyword list.
func New() *Extractor {
	return WithKeywords(DefaultNoiseKeywords)
}

// WithKeywords returns an Extractor that discards any line containing one
// of the given keywords, compared case-insensitively. The slice is copied.
func WithKeywords(keywords []string) *Extractor {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &Extractor{keywords: lowered}
}

// Extract parses all lines of text and returns the accepted items in order.
func (e *Extractor) Extract(text string) []models.LineItem {
	var items []models.LineItem
	for item := range e.Items(text) {
		items = append(items, item)
	}
	return items
}

// Items returns a restartable sequence over the items extracted from text.
// The sequence is pure: iterating it twice yields the same items.
func (e *Extractor) Items(text string) iter.Seq[models.LineItem] {
	return func(yield func(models.LineItem) bool) {
		for _, line := range strings.Split(text, "\n") {
			item, ok := e.parseLine(line)
			if !ok {
				continue
			}
			if !yield(item) {
				return
			}
		}
	}
}

// parseLine applies the per-line heuristic. It reports ok=false for empty
// lines, noise lines, lines that do not match the pattern, names of two
// characters or fewer, and price tokens with no digits.
func (e *Extractor) parseLine(line string) (models.LineItem, bool) {
	clean := strings.TrimSpace(line)
	if clean == "" {
		return models.LineItem{}, false
	}

	lower := strings.ToLower(clean)
	for _, kw := range e.keywords {
		if strings.Contains(lower, kw) {
			return models.LineItem{}, false
		}
	}

	m := linePattern.FindStringSubmatch(clean)
	if m == nil {
		return models.LineItem{}, false
	}

	name := strings.TrimSpace(m[2])

	// The price token keeps digits only. Thousand separators and decimal
	// points are stripped alike: the source currency has no fractional
	// subunit, so "10.000" is ten thousand whole units, not a decimal.
	digits := nonDigit.ReplaceAllString(m[3], "")

	if len(name) <= 2 || digits == "" {
		return models.LineItem{}, false
	}

	price, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return models.LineItem{}, false
	}

	qty, err := strconv.Atoi(m[1])
	if err != nil {
		qty = 1
	}

	return models.LineItem{Name: name, Price: price, Quantity: qty}, true
}
