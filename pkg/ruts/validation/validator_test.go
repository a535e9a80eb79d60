package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harborBody struct {
	Name    string     `json:"name" validate:"required"`
	Berth   int        `json:"berth" validate:"min=1"`
	Captain captainPart `json:"captain" valid:""`
}

type captainPart struct {
	Nickname string `json:"nickname" validate:"required,max=5"`
}

func TestActionValidator_Validate(t *testing.T) {
	v := New()

	t.Run("valid form", func(t *testing.T) {
		violations, err := v.Validate(&harborBody{Name: "sea", Berth: 2, Captain: captainPart{Nickname: "mys"}})
		require.NoError(t, err)
		assert.Empty(t, violations)
	})

	t.Run("violations use json names", func(t *testing.T) {
		violations, err := v.Validate(&harborBody{Berth: 0, Captain: captainPart{Nickname: "toolongname"}})
		require.NoError(t, err)
		require.Len(t, violations, 3)
		assert.Equal(t, "name", violations[0].Property)
		assert.Equal(t, "constraints.required.message", violations[0].MessageKey())
		assert.Equal(t, "berth", violations[1].Property)
		assert.Equal(t, []any{"1"}, violations[1].MessageValues())
		assert.Equal(t, "captain.nickname", violations[2].Property)
		assert.Equal(t, "max", violations[2].Tag)
	})

	t.Run("list form", func(t *testing.T) {
		violations, err := v.Validate([]*harborBody{{Name: "a", Berth: 1, Captain: captainPart{Nickname: "x"}}, {Berth: 1, Captain: captainPart{Nickname: "y"}}})
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, "[1].name", violations[0].Property)
	})

	t.Run("nil form", func(t *testing.T) {
		_, err := v.Validate(nil)
		assert.Error(t, err)
	})

	t.Run("not a struct", func(t *testing.T) {
		_, err := v.Validate("sea")
		assert.Error(t, err)
	})
}
