package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTML(t *testing.T) {
	svc := NewService(WithGFM())

	out, err := svc.RenderHTML("Bring **snacks**")
	require.NoError(t, err)
	assert.Equal(t, "<p>Bring <strong>snacks</strong></p>\n", out)

	out, err = svc.RenderHTML("~~cancelled~~")
	require.NoError(t, err)
	assert.Contains(t, out, "<del>cancelled</del>")

	out, err = svc.RenderHTML("")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRenderHTML_DropsRawHTML(t *testing.T) {
	out, err := NewService().RenderHTML("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}
