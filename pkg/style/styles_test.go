package style

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/stretchr/testify/assert"
)

func TestStylesAreDistinct(t *testing.T) {
	assert.NotEqual(t, lipgloss.NewStyle(), Title)
	assert.NotEqual(t, lipgloss.NewStyle(), Detail)
	assert.NotEqual(t, lipgloss.NewStyle(), Success)
	assert.NotEqual(t, lipgloss.NewStyle(), Phase)
}

func TestFailure(t *testing.T) {
	out := Failure("nixos-install failed", "see the log")
	assert.Contains(t, out, "nixos-install failed")
	assert.Contains(t, out, "see the log")
	assert.Equal(t, 2, len(strings.Split(out, "\n")))

	out = Failure("title only", "")
	assert.Contains(t, out, "title only")
	assert.NotContains(t, out, "\n")
}
