package headless

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLDataURLInjectsBase(t *testing.T) {
	got := HTMLDataURL(`<html><HEAD><title>領収書</title></HEAD><body><img src="img/logo.png"></body></html>`, "https://akizukidenshi.com/")

	require.True(t, strings.HasPrefix(got, "data:text/html;charset=utf-8,"))

	decoded, err := url.PathUnescape(strings.TrimPrefix(got, "data:text/html;charset=utf-8,"))
	require.NoError(t, err)
	assert.Contains(t, decoded, `<HEAD><base href="https://akizukidenshi.com/"><title>`)
}

func TestHTMLDataURLWithoutHead(t *testing.T) {
	got := HTMLDataURL(`<p>x</p>`, "https://example.com")

	decoded, err := url.PathUnescape(strings.TrimPrefix(got, "data:text/html;charset=utf-8,"))
	require.NoError(t, err)
	assert.Equal(t, `<base href="https://example.com/"><p>x</p>`, decoded)

	decoded, _ = url.PathUnescape(strings.TrimPrefix(HTMLDataURL(`<p>x</p>`, ""), "data:text/html;charset=utf-8,"))
	assert.Equal(t, `<p>x</p>`, decoded)
}

func TestA4Params(t *testing.T) {
	assert.True(t, A4.PrintBackground)
	assert.True(t, A4.PreferCSSPageSize)
	assert.Equal(t, 8.27, A4.PaperWidth)
	assert.Equal(t, 11.69, A4.PaperHeight)
	assert.Equal(t, 0.4, A4.Margin)
}
