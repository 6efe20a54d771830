package retrieval

import (
	"regexp"
	"strings"

	"github.com/tdvu/bookstore-agent/internal/textnorm"
)

// Parsed is the outcome of splitting a user query into free text and an
// optional category filter. Category is the canonical name after synonym
// mapping; RawCategory keeps the pre-mapping guess so callers can retry
// against catalogs labeled in the user's own language.
type Parsed struct {
	Query       string
	Category    string
	RawCategory string
}

// topicPattern extracts the phrase following an explicit topic keyword, e.g.
// "sach chu de phieu luu" -> "phieu luu".
var topicPattern = regexp.MustCompile(`(?:chu de|the loai|danh muc|loai sach|genre|topic|category)\s+([a-z0-9 _-]+)`)

var topicHints = []string{"chu de", "chude", "the loai", "theloai", "danh muc", "danhmuc", "loai sach", "genre", "topic", "category"}

// stopwords are dropped before treating a short query as a category guess.
var stopwords = map[string]bool{
	// vi
	"sach": true, "sachve": true, "muon": true, "tim": true, "toi": true,
	"minh": true, "ban": true, "cho": true, "cuon": true, "quyen": true,
	"co": true, "khong": true, "ve": true,
	// en
	"book": true, "books": true, "do": true, "you": true, "have": true,
	"any": true, "the": true, "a": true, "an": true, "some": true,
	"i": true, "want": true, "find": true, "looking": true, "for": true,
	"about": true, "me": true,
}

// defaultSynonyms maps canonical category names to normalized alternates.
// Extend per catalog; matching happens in normalized space.
var defaultSynonyms = map[string][]string{
	"adventure": {"phieu luu", "tham hiem", "hanh trinh"},
	"science":   {"khoa hoc", "vu tru", "vat ly", "sinh hoc"},
	"history":   {"lich su", "nhan loai"},
	"self-help": {"tam ly", "ky nang", "phat trien ban than"},
	"children":  {"thieu nhi", "thieu nien"},
}

// ParseQuery detects an optional category filter: either the phrase after an
// explicit topic keyword, or — for queries that reduce to 1–3 tokens once
// stop-words are removed — the remaining tokens as a guess. Guesses run
// through the synonym table to land on canonical category names.
func ParseQuery(raw string, synonyms map[string][]string) Parsed {
	if synonyms == nil {
		synonyms = defaultSynonyms
	}
	norm := textnorm.Fold(raw)
	var category string

	for _, hint := range topicHints {
		if strings.Contains(norm, hint) {
			if m := topicPattern.FindStringSubmatch(norm); m != nil {
				category = strings.TrimSpace(m[1])
			}
			break
		}
	}

	if category == "" {
		var core []string
		for _, tok := range textnorm.Tokens(raw) {
			if !stopwords[tok] {
				core = append(core, tok)
			}
		}
		if len(core) >= 1 && len(core) <= 3 {
			category = strings.Join(core, " ")
		}
	}

	canonical := category
	if category != "" {
		canonical = canonicalCategory(category, synonyms)
	}

	return Parsed{Query: strings.TrimSpace(raw), Category: canonical, RawCategory: category}
}

func canonicalCategory(guess string, synonyms map[string][]string) string {
	for canonical, alts := range synonyms {
		if guess == canonical {
			return canonical
		}
		for _, alt := range alts {
			if strings.Contains(alt, guess) || strings.Contains(guess, alt) {
				return canonical
			}
		}
	}
	return guess
}
