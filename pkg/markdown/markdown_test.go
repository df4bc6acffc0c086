package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Basics(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render("**Bold** and `code`")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<strong>Bold</strong>")
	assert.Contains(t, string(out), "<code>code</code>")
}

func TestRender_StripsScripts(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render("hello <script>alert(1)</script> [x](javascript:alert(1))")
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script")
	assert.NotContains(t, string(out), "javascript:")
}

func TestRender_LinksAreNoFollow(t *testing.T) {
	out := NewRenderer().MustRender("see https://example.com")
	assert.True(t, strings.Contains(string(out), `rel="nofollow noopener"`) ||
		strings.Contains(string(out), `rel="nofollow"`), string(out))
}
