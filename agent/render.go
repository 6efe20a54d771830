package agent

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tdvu/bookstore-agent/dialog"
)

// prompts are the canned follow-up questions for each solicited slot.
var prompts = map[dialog.Prompt]string{
	dialog.PromptQuantity:  "Bạn muốn mua bao nhiêu quyển?",
	dialog.PromptPhone:     "Cho mình xin số điện thoại của bạn nhé?",
	dialog.PromptAddress:   "Bạn muốn giao sách tới địa chỉ nào?",
	dialog.PromptName:      "Cho mình xin tên người nhận nhé?",
	dialog.PromptNewItem:   "Bạn muốn mua cuốn sách nào? Nhắn tên sách hoặc id giúp mình nhé.",
	dialog.PromptEditField: "Bạn muốn sửa thông tin nào? (số lượng, sđt, địa chỉ, tên hay sách)",
}

// formatPrice renders a smallest-unit price with dot thousand separators,
// 55000 becomes "55.000đ".
func formatPrice(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String() + "đ"
	if neg {
		out = "-" + out
	}
	return out
}

// renderHits formats a result list for the customer, one numbered line per
// item with title, author, price, remaining stock and id.
func renderHits(hits []dialog.ItemRef) string {
	if len(hits) == 0 {
		return "Mình không tìm thấy cuốn nào phù hợp. Bạn thử mô tả khác xem sao?"
	}
	var b strings.Builder
	b.WriteString("Mình tìm được mấy cuốn này:\n")
	for i, h := range hits {
		fmt.Fprintf(&b, "%d. %s — %s — %s (còn %d) [id %d]\n", i+1, h.Title, h.Author, formatPrice(h.Price), h.Stock, h.ID)
	}
	b.WriteString("Bạn muốn mua cuốn nào?")
	return b.String()
}

// renderSummary formats the confirmation summary shown before submission.
func renderSummary(item dialog.ItemRef, slots dialog.Slots) string {
	qty := 0
	if slots.Quantity != nil {
		qty = *slots.Quantity
	}
	total := item.Price * int64(qty)
	var b strings.Builder
	b.WriteString("Bạn kiểm tra lại đơn hàng nhé:\n")
	fmt.Fprintf(&b, "- Sách: %s — %s\n", item.Title, item.Author)
	fmt.Fprintf(&b, "- Số lượng: %d x %s = %s\n", qty, formatPrice(item.Price), formatPrice(total))
	if slots.Name != nil {
		fmt.Fprintf(&b, "- Người nhận: %s\n", *slots.Name)
	}
	if slots.Phone != nil {
		fmt.Fprintf(&b, "- SĐT: %s\n", *slots.Phone)
	}
	if slots.Address != nil {
		fmt.Fprintf(&b, "- Địa chỉ: %s\n", *slots.Address)
	}
	b.WriteString("Nhắn \"ok\" để xác nhận, hoặc \"sửa\" nếu muốn thay đổi.")
	return b.String()
}

func promptText(p dialog.Prompt) string {
	if text, ok := prompts[p]; ok {
		return text
	}
	return prompts[dialog.PromptNewItem]
}
