package dialog

import (
	"strings"

	"github.com/tdvu/bookstore-agent/internal/textnorm"
)

// DefaultConfirmTokens are the exact utterances accepted as order confirmation.
// Matching is full-message: the folded, letters-only input must equal a token,
// so "ok nhung doi dia chi" does not confirm.
var DefaultConfirmTokens = []string{"ok", "oke", "okay", "dongy", "xacnhan", "yes", "confirm"}

var editMarkers = []string{"sua", "doi", "thay", "chinh", "edit", "change", "fix"}

var buyMoreMarkers = []string{"muathem", "datthem", "muacuonkhac", "buymore", "ordermore", "anotherorder", "buyanother"}

// IsAffirmative reports whether the whole message is a bare confirmation.
func IsAffirmative(text string, tokens []string) bool {
	if len(tokens) == 0 {
		tokens = DefaultConfirmTokens
	}
	letters := textnorm.Letters(text)
	if letters == "" {
		return false
	}
	for _, tok := range tokens {
		if letters == textnorm.Letters(tok) {
			return true
		}
	}
	return false
}

// IsEditRequest reports whether the message asks to change a collected slot.
func IsEditRequest(text string) bool {
	squashed := textnorm.Squash(text)
	for _, m := range editMarkers {
		if strings.Contains(squashed, m) {
			return true
		}
	}
	return false
}

// WantsAnotherOrder reports whether the message starts a follow-up purchase.
func WantsAnotherOrder(text string) bool {
	squashed := textnorm.Squash(text)
	for _, m := range buyMoreMarkers {
		if strings.Contains(squashed, m) {
			return true
		}
	}
	return false
}

// ClassifyField maps an edit utterance to the slot it targets. Checks run in
// a fixed priority so "doi so luong va sdt" resolves to quantity, ok reports
// false when no slot keyword is present.
func ClassifyField(text string) (Field, bool) {
	folded := textnorm.Fold(text)
	squashed := textnorm.Squash(text)
	switch {
	case containsAny(folded, squashed, "so luong", "soluong", "quyen", "cuon", "quantity", "qty"):
		return FieldQuantity, true
	case containsAny(folded, squashed, "sdt", "so dien thoai", "dien thoai", "phone"):
		return FieldPhone, true
	case containsAny(folded, squashed, "dia chi", "diachi", "address"):
		return FieldAddress, true
	case mentionsName(folded, squashed):
		return FieldName, true
	case containsAny(folded, squashed, "sach", "book", "tua", "title", "item"):
		return FieldItem, true
	}
	return "", false
}

func mentionsName(folded, squashed string) bool {
	if !containsAny(folded, squashed, "ten", "name") {
		return false
	}
	// "ten sach" is about the title, not the buyer.
	return !containsAny(folded, squashed, "sach", "book", "title")
}

func containsAny(folded, squashed string, keys ...string) bool {
	for _, k := range keys {
		if strings.Contains(folded, k) || strings.Contains(squashed, textnorm.Squash(k)) {
			return true
		}
	}
	return false
}
