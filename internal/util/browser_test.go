package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBrowserCommands(t *testing.T) {
	t.Parallel()

	const url = "http://localhost:20262"
	assert.Equal(t, [][]string{{"open", url}}, browserCommands("darwin", url))

	win := browserCommands("windows", url)
	assert.Equal(t, "rundll32", win[0][0])
	assert.Equal(t, url, win[0][2])

	linux := browserCommands("linux", url)
	assert.Equal(t, []string{"xdg-open", url}, linux[0])
	for _, args := range linux {
		assert.Equal(t, url, args[len(args)-1])
	}
}
