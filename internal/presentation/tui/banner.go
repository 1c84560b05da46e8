package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`  ___        _ _      _    _                      _ `, "#38bdf8"},
	{` / __|_ __ _(_) |_ __| |_ | |__  ___  __ _ _ _ __| |`, "#22d3ee"},
	{` \__ \ V  V / |  _/ _| ' \| '_ \/ _ \/ _` + "`" + ` | '_/ _` + "`" + ` |`, "#2dd4bf"},
	{` |___/\_/\_/|_|\__\__|_||_|_.__/\___/\__,_|_| \__,_|`, "#34d399"},
}

// PrintBanner writes the Switchboard banner to w using the colors p supports.
func PrintBanner(w io.Writer, p termenv.Profile) {
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
