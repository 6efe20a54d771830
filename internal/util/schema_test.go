package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleArgs struct {
	Query string `json:"query" description:"free text"`
	Limit int    `json:"limit,omitempty"`
	Note  *string `json:"note"`
}

func TestSchemaFor(t *testing.T) {
	schema := SchemaFor(sampleArgs{})

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, props, 3)
	assert.Equal(t, "string", props["query"].(map[string]any)["type"])
	assert.Equal(t, "free text", props["query"].(map[string]any)["description"])
	assert.Equal(t, "integer", props["limit"].(map[string]any)["type"])

	// omitempty and pointer fields are optional
	assert.Equal(t, []string{"query"}, schema["required"])
}

func TestValidateParameters(t *testing.T) {
	schema := SchemaFor(sampleArgs{})

	assert.NoError(t, ValidateParameters(map[string]any{"query": "sherlock"}, schema))
	// JSON numbers arrive as float64
	assert.NoError(t, ValidateParameters(map[string]any{"query": "x", "limit": float64(5)}, schema))
	// extra fields tolerated
	assert.NoError(t, ValidateParameters(map[string]any{"query": "x", "bogus": true}, schema))

	err := ValidateParameters(map[string]any{"limit": 5}, schema)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "query", verr.Field)

	err = ValidateParameters(map[string]any{"query": 42}, schema)
	require.Error(t, err)

	// fractional value where an integer is declared
	err = ValidateParameters(map[string]any{"query": "x", "limit": 1.5}, schema)
	require.Error(t, err)
}
