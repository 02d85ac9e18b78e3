package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTitleFromMessage(t *testing.T) {
	require.Equal(t, "short question", titleFromMessage("short question"))

	long := strings.Repeat("w", 60)
	title := titleFromMessage(long)
	require.Equal(t, strings.Repeat("w", 50)+"...", title)

	// Exactly at the limit stays untouched.
	exact := strings.Repeat("w", 50)
	require.Equal(t, exact, titleFromMessage(exact))

	// Multi-byte text truncates on rune boundaries.
	hindi := strings.Repeat("क", 60)
	require.Equal(t, strings.Repeat("क", 50)+"...", titleFromMessage(hindi))
}
