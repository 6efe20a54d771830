package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQueryTopicHint(t *testing.T) {
	p := ParseQuery("sách chủ đề phiêu lưu", nil)
	assert.Equal(t, "adventure", p.Category)
	assert.Equal(t, "phieu luu", p.RawCategory)
	assert.Equal(t, "sách chủ đề phiêu lưu", p.Query)
}

func TestParseQueryShortGuess(t *testing.T) {
	p := ParseQuery("phiêu lưu", nil)
	assert.Equal(t, "adventure", p.Category)

	p = ParseQuery("do you have any adventure books", nil)
	assert.Equal(t, "adventure", p.Category)

	p = ParseQuery("khoa học", nil)
	assert.Equal(t, "science", p.Category)
}

func TestParseQueryNoCategory(t *testing.T) {
	// too many content tokens for a category guess
	p := ParseQuery("the complete sherlock holmes collection conan doyle hardcover", nil)
	assert.Empty(t, p.Category)
}

func TestParseQueryUnknownGuessKept(t *testing.T) {
	p := ParseQuery("gardening", nil)
	assert.Equal(t, "gardening", p.Category)
	assert.Equal(t, "gardening", p.RawCategory)
}

func TestParseQueryCustomSynonyms(t *testing.T) {
	p := ParseQuery("trinh thám", map[string][]string{"mystery": {"trinh tham"}})
	assert.Equal(t, "mystery", p.Category)
}
