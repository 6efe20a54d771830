package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tdvu/bookstore-agent/completion"
	"github.com/tdvu/bookstore-agent/dialog"
	"github.com/tdvu/bookstore-agent/store"
)

// Intent tags returned by slot resolution.
const (
	intentSearch    = "search"
	intentOrder     = "order"
	intentStatus    = "status"
	intentSmalltalk = "smalltalk"
	intentUnknown   = "unknown"
)

// normalizeIntent maps model output onto the closed intent set; anything the
// model invents collapses to unknown.
func normalizeIntent(s string) string {
	switch t := strings.ToLower(strings.TrimSpace(s)); t {
	case intentSearch, intentOrder, intentStatus, intentSmalltalk:
		return t
	default:
		return intentUnknown
	}
}

type nluSlots struct {
	Quantity *int    `json:"quantity,omitempty"`
	Name     *string `json:"customer_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Address  *string `json:"address,omitempty"`
}

// nluResult is the structured output of the slot-resolution stage.
type nluResult struct {
	Intent  string   `json:"intent"`
	Query   string   `json:"query,omitempty"`
	ItemID  *uint    `json:"item_id,omitempty"`
	Slots   nluSlots `json:"slots"`
	Clarify string   `json:"clarify,omitempty"`
}

const nluSystem = `Bạn là bộ phân tích ý định cho một hiệu sách online.
Phân tích tin nhắn mới nhất của khách trong ngữ cảnh hội thoại và trả về DUY NHẤT một JSON object:
{"intent":"search|order|status|smalltalk|unknown","query":"từ khoá tìm sách nếu intent=search","item_id":<id sách nếu khách chỉ rõ>,"slots":{"quantity":<số lượng>,"customer_name":"<tên người nhận>","phone":"<sđt>","address":"<địa chỉ>"},"clarify":"<câu hỏi lại khách nếu thiếu thông tin>"}
Chỉ điền trường khi chắc chắn; bỏ trống trường không có. Không thêm văn bản ngoài JSON.`

// buildNLURequest renders history, the latest result list and current slots
// into one prompt for the extraction call.
func buildNLURequest(st *dialog.SessionState, history []store.Message, text string) completion.Request {
	var b strings.Builder

	if len(history) > 0 {
		b.WriteString("Hội thoại gần đây:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}

	if len(st.LastHits) > 0 {
		b.WriteString("Kết quả tìm kiếm gần nhất:\n")
		for i, h := range st.LastHits {
			fmt.Fprintf(&b, "%d. [id %d] %s — %s\n", i+1, h.ID, h.Title, h.Author)
		}
		b.WriteString("\n")
	}

	if slotsJSON, err := json.Marshal(st.Slots); err == nil {
		fmt.Fprintf(&b, "Thông tin đơn hàng đã có: %s\n\n", slotsJSON)
	}

	fmt.Fprintf(&b, "Tin nhắn mới của khách: %s", text)

	return completion.Request{System: nluSystem, User: b.String()}
}

// mergeNLU folds extracted values into the session, empty slots only.
func mergeNLU(st *dialog.SessionState, res nluResult) {
	st.Slots.Merge(dialog.Slots{
		Quantity: res.Slots.Quantity,
		Name:     trimmed(res.Slots.Name),
		Phone:    trimmed(res.Slots.Phone),
		Address:  trimmed(res.Slots.Address),
	})
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
