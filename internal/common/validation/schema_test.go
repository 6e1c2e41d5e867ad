package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitSchema() JSONSchema {
	return JSONSchema{
		Type: "object",
		Properties: map[string]Property{
			"lokasi":    {Type: "string", MinLength: IntPtr(1)},
			"kapasitas": {Type: "string"},
			"jenis":     {Type: "string", Enum: []string{"CO2", "Powder", "Foam"}},
		},
		Required:             []string{"lokasi"},
		AdditionalProperties: true,
	}
}

func TestSchema_Validate(t *testing.T) {
	schema, err := Compile(unitSchema())
	require.NoError(t, err)

	t.Run("valid form", func(t *testing.T) {
		result := schema.Validate(FormDocument(map[string]string{"lokasi": "Gudang A", "jenis": "CO2"}))
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
	})

	t.Run("missing required field", func(t *testing.T) {
		result := schema.Validate(FormDocument(map[string]string{"kapasitas": "6kg"}))
		assert.False(t, result.Valid)
		assert.True(t, result.HasErrors("lokasi"))
		assert.Equal(t, "REQUIRED_FIELD_MISSING", result.GetErrorsForField("lokasi")[0].Code)
	})

	t.Run("empty required field", func(t *testing.T) {
		result := schema.Validate(FormDocument(map[string]string{"lokasi": ""}))
		assert.False(t, result.Valid)
		require.Len(t, result.GetErrorsForField("lokasi"), 1)
		assert.Equal(t, "MIN_LENGTH_VIOLATION", result.GetErrorsForField("lokasi")[0].Code)
	})

	t.Run("enum violation", func(t *testing.T) {
		result := schema.Validate(FormDocument(map[string]string{"lokasi": "Pos 1", "jenis": "Water"}))
		assert.False(t, result.Valid)
		assert.True(t, result.HasErrors("jenis"))
		assert.Len(t, result.Errors, 1)
	})
}

func TestCompile_EmptySchemaAcceptsAnything(t *testing.T) {
	schema, err := Compile(JSONSchema{AdditionalProperties: true})
	require.NoError(t, err)
	assert.True(t, schema.Validate(map[string]interface{}{"x": "y"}).Valid)
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("supervisor@plant.co.id"))
	assert.False(t, ValidateEmail("not-an-email"))
}
