package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdvu/bookstore-agent/internal/util"
)

func TestNormalizeTool(t *testing.T) {
	tests := []struct {
		name string
		want ToolKind
		ok   bool
	}{
		{"search_books", ToolSearchBooks, true},
		{"Find_Books", ToolSearchBooks, true},
		{"find books", ToolSearchBooks, true},
		{"SEARCH", ToolSearchBooks, true},
		{"tìm sách", ToolSearchBooks, true},
		{"create-order", ToolCreateOrder, true},
		{"Place Order", ToolCreateOrder, true},
		{"đặt hàng", ToolCreateOrder, true},
		{"last_order_status", ToolLastOrderStatus, true},
		{"check_status", ToolLastOrderStatus, true},
		{"teleport", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeTool(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.name)
		}
	}
}

func TestSchemaForTool(t *testing.T) {
	schema, ok := SchemaForTool(ToolSearchBooks)
	require.True(t, ok)

	// query is required, limit is not.
	require.NoError(t, util.ValidateParameters(map[string]any{"query": "dế mèn"}, schema))
	assert.Error(t, util.ValidateParameters(map[string]any{}, schema))
	assert.Error(t, util.ValidateParameters(map[string]any{"query": 7}, schema))
	require.NoError(t, util.ValidateParameters(map[string]any{"query": "x", "limit": float64(3)}, schema))

	// Order arguments are all optional; slots cover the gaps.
	schema, ok = SchemaForTool(ToolCreateOrder)
	require.True(t, ok)
	require.NoError(t, util.ValidateParameters(map[string]any{}, schema))
	require.NoError(t, util.ValidateParameters(map[string]any{"item_id": float64(3), "quantity": float64(2)}, schema))
	assert.Error(t, util.ValidateParameters(map[string]any{"quantity": "hai"}, schema))

	_, ok = SchemaForTool(ToolKind("bogus"))
	assert.False(t, ok)
}
