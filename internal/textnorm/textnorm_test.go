package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "xac nhan", Fold("  Xác Nhận "))
	assert.Equal(t, "phieu luu", Fold("Phiêu Lưu"))
	assert.Equal(t, "adventure", Fold("Adventure"))
}

func TestSquash(t *testing.T) {
	assert.Equal(t, "muathem", Squash("Mua  thêm"))
}

func TestLetters(t *testing.T) {
	assert.Equal(t, "ok", Letters("OK!"))
	assert.Equal(t, "dongy", Letters("Đồng ý."))
	assert.Equal(t, "", Letters("123"))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"sach", "chu", "de", "phieu", "luu"}, Tokens("sách chủ đề phiêu lưu"))
	assert.Equal(t, []string{"id", "7"}, Tokens("id: 7"))
	assert.Empty(t, Tokens("  ,  "))
}
