package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestPrintBanner_Ascii(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, termenv.Ascii)

	out := buf.String()
	assert.NotContains(t, out, "\x1b[", "ascii profile must not emit escape codes")
	assert.Equal(t, len(bannerLines)+2, strings.Count(out, "\n"))
}
