package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email    string `validate:"required"`
	Password string `validate:"required,min=4"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(sample{Email: "a@b.c", Password: "abcd"}))
}

func TestStruct_ReportsEveryField(t *testing.T) {
	err := Struct(sample{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'Email' failed 'required'")
	assert.Contains(t, err.Error(), "field 'Password' failed 'required'")
	assert.True(t, Failed(err, "Email", "required"))
	assert.False(t, Failed(err, "Password", "min"))
}

func TestFailed_MinTag(t *testing.T) {
	err := Struct(sample{Email: "a@b.c", Password: "abc"})
	require.Error(t, err)
	assert.True(t, Failed(err, "Password", "min"))
	assert.False(t, Failed(err, "Email", "required"))
}

func TestFailed_ForeignError(t *testing.T) {
	assert.False(t, Failed(assert.AnError, "Email", "required"))
}
