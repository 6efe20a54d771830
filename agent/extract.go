package agent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tdvu/bookstore-agent/internal/textnorm"
)

// Deterministic extractors run before any model call so unambiguous values
// never depend on the completion backend. Patterns match over folded text.
var (
	quantityPattern = regexp.MustCompile(`(\d+)\s*(quyen|cuon|q|x)\b`)
	phonePattern    = regexp.MustCompile(`(0\d{9,10})`)
	bareNumber      = regexp.MustCompile(`^\d+$`)
	itemIDPattern   = regexp.MustCompile(`\bid\s*[:#]?\s*(\d+)\b`)
	ordinalPattern  = regexp.MustCompile(`\b(?:so|thu|number|option)\s*(\d+)\b`)
)

// extractQuantity finds "2 quyển", "3 cuốn", "5x" style quantities.
func extractQuantity(text string) *int {
	m := quantityPattern.FindStringSubmatch(textnorm.Fold(text))
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// extractPhone finds a local-format phone number anywhere in the text.
func extractPhone(text string) *string {
	// Strip common digit separators first so "0912 345 678" matches.
	compact := strings.NewReplacer(" ", "", ".", "", "-", "").Replace(text)
	m := phonePattern.FindStringSubmatch(compact)
	if m == nil {
		return nil
	}
	return &m[1]
}

// parseBareQuantity accepts a plain number as the answer to a quantity prompt.
func parseBareQuantity(text string) *int {
	s := strings.TrimSpace(text)
	if !bareNumber.MatchString(s) {
		return extractQuantity(text)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// extractItemID finds an explicit "id 7" style reference.
func extractItemID(text string) *uint {
	m := itemIDPattern.FindStringSubmatch(textnorm.Fold(text))
	if m == nil {
		return nil
	}
	n, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return nil
	}
	id := uint(n)
	return &id
}

// extractOrdinal finds a 1-based position reference ("số 2", "option 1") into
// the most recent result list.
func extractOrdinal(text string) int {
	m := ordinalPattern.FindStringSubmatch(textnorm.Fold(text))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
