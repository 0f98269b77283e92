package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schemaFixture struct {
	Name  string   `json:"name" description:"the name"`
	Count *float64 `json:"count,omitempty"`
	Skip  string   `json:"-"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(schemaFixture{})
	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	name := props["name"].(map[string]any)
	assert.Equal(t, "string", name["type"])
	assert.Equal(t, "the name", name["description"])
	count := props["count"].(map[string]any)
	assert.Equal(t, "number", count["type"])

	assert.Equal(t, []string{"name"}, schema["required"])
}

func TestValidateParameters(t *testing.T) {
	schema := CreateSchema(schemaFixture{})

	assert.NoError(t, ValidateParameters(map[string]any{"name": "x"}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"name": "x", "count": 2.0}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"name": "x", "extra": true}, schema))

	err := ValidateParameters(map[string]any{}, schema)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	err = ValidateParameters(map[string]any{"name": 7}, schema)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestValidateParametersToleratesDecodedRequired(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"a": map[string]any{"type": "string"}},
		"required":   []any{"a"},
	}
	assert.Error(t, ValidateParameters(map[string]any{}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"a": "v"}, schema))
}
