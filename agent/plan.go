package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tdvu/bookstore-agent/completion"
	"github.com/tdvu/bookstore-agent/dialog"
)

// planAction is one proposed tool invocation.
type planAction struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// planResult is the planner's structured output: at most two actions, or a
// clarifying question instead.
type planResult struct {
	Actions []planAction `json:"actions"`
	Clarify string       `json:"clarify,omitempty"`
}

// observation is the outcome of executing (or rejecting) one planned action.
type observation struct {
	Tool   string `json:"tool"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// sayResult is the responder's structured output.
type sayResult struct {
	Say string `json:"say"`
}

const planSystem = `Bạn là bộ lập kế hoạch cho trợ lý hiệu sách.
Chọn tối đa 2 công cụ để xử lý tin nhắn của khách, hoặc đặt một câu hỏi làm rõ.
Trả về DUY NHẤT một JSON object:
{"actions":[{"tool":"<tên công cụ>","args":{...}}],"clarify":"<câu hỏi làm rõ, nếu cần>"}
Nếu đặt câu hỏi làm rõ thì để actions rỗng. Không thêm văn bản ngoài JSON.`

// buildPlanRequest advertises the closed tool set with argument schemas.
func buildPlanRequest(st *dialog.SessionState, text string) completion.Request {
	var b strings.Builder
	b.WriteString("Các công cụ khả dụng:\n")
	for _, kind := range []ToolKind{ToolSearchBooks, ToolCreateOrder, ToolLastOrderStatus} {
		schema, _ := SchemaForTool(kind)
		schemaJSON, _ := json.Marshal(schema)
		fmt.Fprintf(&b, "- %s: %s\n", kind, schemaJSON)
	}
	b.WriteString("\n")

	if slotsJSON, err := json.Marshal(st.Slots); err == nil {
		fmt.Fprintf(&b, "Thông tin đơn hàng đã có: %s\n\n", slotsJSON)
	}

	fmt.Fprintf(&b, "Tin nhắn của khách: %s", text)
	return completion.Request{System: planSystem, User: b.String()}
}

const respondSystem = `Bạn là trợ lý bán sách thân thiện, trả lời ngắn gọn bằng tiếng Việt.
Dựa vào kết quả các công cụ bên dưới, soạn câu trả lời cho khách.
Trả về DUY NHẤT một JSON object: {"say":"<câu trả lời>"}`

// buildRespondRequest feeds the collected observations to the responder.
func buildRespondRequest(observations []observation, text string) completion.Request {
	var b strings.Builder
	b.WriteString("Kết quả công cụ:\n")
	for _, obs := range observations {
		if obs.Error != "" {
			fmt.Fprintf(&b, "- %s: lỗi: %s\n", obs.Tool, obs.Error)
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", obs.Tool, obs.Result)
	}
	fmt.Fprintf(&b, "\nTin nhắn của khách: %s", text)
	return completion.Request{System: respondSystem, User: b.String()}
}

// hasSearchObservation reports whether any successful search ran, for the
// short-reply fallback.
func hasSearchObservation(observations []observation) bool {
	for _, obs := range observations {
		if obs.Tool == string(ToolSearchBooks) && obs.Error == "" {
			return true
		}
	}
	return false
}
