package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type form struct {
	Name    string `json:"name" validate:"min=2"`
	Email   string `json:"email,omitempty" validate:"required,email"`
	Confirm string `json:"confirm" validate:"eqfield=Name"`
}

func TestStruct(t *testing.T) {
	assert.Nil(t, Struct(&form{Name: "ab", Email: "a@b.co", Confirm: "ab"}, nil))

	verr := Struct(&form{Name: "a", Email: "nope", Confirm: "x"}, Messages{
		"name.min": "Name must be at least 2 characters",
	})
	require.NotNil(t, verr)
	assert.Equal(t, []string{"Name must be at least 2 characters"}, verr.Fields["name"])
	assert.Equal(t, []string{"The field 'email' must be a valid email address."}, verr.Fields["email"])
	assert.Equal(t, []string{"The field 'confirm' must match Name."}, verr.Fields["confirm"])
}
