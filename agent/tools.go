package agent

import (
	"github.com/tdvu/bookstore-agent/internal/textnorm"
	"github.com/tdvu/bookstore-agent/internal/util"
)

// ToolKind enumerates the closed set of tools the planner may invoke.
type ToolKind string

const (
	ToolSearchBooks     ToolKind = "search_books"
	ToolCreateOrder     ToolKind = "create_order"
	ToolLastOrderStatus ToolKind = "last_order_status"
)

// toolAliases maps normalized free-text tool names to kinds. Keys are folded
// to letters only, so "Find_Books" and "find books" both land on search.
var toolAliases = map[string]ToolKind{
	"searchbooks":     ToolSearchBooks,
	"search":          ToolSearchBooks,
	"searchitems":     ToolSearchBooks,
	"findbooks":       ToolSearchBooks,
	"finditems":       ToolSearchBooks,
	"booksearch":      ToolSearchBooks,
	"timsach":         ToolSearchBooks,
	"createorder":     ToolCreateOrder,
	"order":           ToolCreateOrder,
	"placeorder":      ToolCreateOrder,
	"makeorder":       ToolCreateOrder,
	"datsach":         ToolCreateOrder,
	"dathang":         ToolCreateOrder,
	"lastorderstatus": ToolLastOrderStatus,
	"orderstatus":     ToolLastOrderStatus,
	"checkorder":      ToolLastOrderStatus,
	"checkstatus":     ToolLastOrderStatus,
	"status":          ToolLastOrderStatus,
	"trangthaidon":    ToolLastOrderStatus,
}

// NormalizeTool resolves a free-text tool name to a kind. Matching is
// case-insensitive and ignores separators and diacritics.
func NormalizeTool(name string) (ToolKind, bool) {
	kind, ok := toolAliases[textnorm.Letters(name)]
	return kind, ok
}

// searchArgs are the arguments of the search tool.
type searchArgs struct {
	Query string `json:"query" description:"free-text search query"`
	Limit int    `json:"limit,omitempty" description:"maximum number of results"`
}

// orderArgs are the arguments of the order tool. All fields are optional on
// the wire; missing values fall back to the slots already collected.
type orderArgs struct {
	ItemID   *uint   `json:"item_id,omitempty" description:"catalog item id"`
	Quantity *int    `json:"quantity,omitempty" description:"number of copies"`
	Name     *string `json:"customer_name,omitempty" description:"buyer name"`
	Phone    *string `json:"phone,omitempty" description:"buyer phone number"`
	Address  *string `json:"address,omitempty" description:"delivery address"`
}

// statusArgs are the (empty) arguments of the status tool.
type statusArgs struct{}

var toolSchemas = map[ToolKind]map[string]any{
	ToolSearchBooks:     util.SchemaFor(searchArgs{}),
	ToolCreateOrder:     util.SchemaFor(orderArgs{}),
	ToolLastOrderStatus: util.SchemaFor(statusArgs{}),
}

// SchemaForTool returns the argument schema of a tool kind.
func SchemaForTool(kind ToolKind) (map[string]any, bool) {
	schema, ok := toolSchemas[kind]
	return schema, ok
}
