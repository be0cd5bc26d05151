package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateValidationErrors(t *testing.T) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	type payload struct {
		Content string `json:"content" validate:"required,notblank"`
		Note    string `json:"note" validate:"notblank"`
		Kind    string `json:"-" validate:"omitempty,oneof=text voice"`
	}

	tests := []struct {
		name       string
		data       payload
		wantFields map[string]string
	}{
		{name: "valid", data: payload{Content: "hi", Note: "x"}},
		{
			name:       "missing and blank",
			data:       payload{Note: "   "},
			wantFields: map[string]string{"content": requiredText, "note": notBlankText},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := TranslateValidationErrors(validate.Struct(tt.data), translator)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantFields, vErr.FieldsMap())
		})
	}

	other := errors.New("boom")
	assert.Equal(t, other, TranslateValidationErrors(other, translator))
	assert.Nil(t, TranslateValidationErrors(nil, translator))
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Hello", CleanString("  Hello \n"))
	assert.Equal(t, "hello", CleanString(" Hello ", true))
	assert.Equal(t, "", CleanString("   "))
}
