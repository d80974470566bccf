package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	PCN  string `json:"pcn" validate:"required,pcn"`
	Sex  string `json:"sex" validate:"omitempty,sex"`
	Mail string `json:"email" validate:"required,email"`
}

func TestStruct_Valid(t *testing.T) {
	require.NoError(t, Struct(sample{PCN: "1234-5678-9012-3456", Sex: "female", Mail: "a@b.co"}))
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{PCN: "123", Sex: "x", Mail: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'pcn' failed 'pcn'")
	assert.Contains(t, err.Error(), "field 'sex' failed 'sex'")
	assert.Contains(t, err.Error(), "field 'email' failed 'email'")
}
