package styles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryColor(t *testing.T) {
	assert.Equal(t, CategoryColor(0), CategoryColor(len(categoryPalette)))
	assert.NotEqual(t, CategoryColor(0), CategoryColor(1))
	assert.True(t, strings.HasPrefix(CategoryColor(-3), "#"))
}

func TestRenderPlain(t *testing.T) {
	out, err := Render("# Stats\n\n| mnemonic | count |\n|---|---|\n| add.w | 3 |\n", 80, true)
	require.NoError(t, err)
	assert.Contains(t, out, "add.w")
	assert.NotContains(t, out, "\x1b[", "plain output carries no escape codes")
}
