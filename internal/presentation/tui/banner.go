package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerArt = []string{
	"             _     _      _                 _    ",
	"  __ _ _   _(_) __| | ___| |__   ___   ___ | | __",
	" / _` | | | | |/ _` |/ _ \\ '_ \\ / _ \\ / _ \\| |/ /",
	"| (_| | |_| | | (_| |  __/ |_) | (_) | (_) |   < ",
	" \\__, |\\__,_|_|\\__,_|\\___|_.__/ \\___/ \\___/|_|\\_\\",
	" |___/                                           ",
}

var bannerColors = []string{"#34d399", "#2dd4bf", "#22d3ee", "#38bdf8", "#60a5fa", "#818cf8"}

// PrintBanner writes the guidebook banner to w, colored when w is a terminal.
func PrintBanner(w io.Writer, version string) {
	p := termenv.NewOutput(w).Profile
	fmt.Fprintln(w)
	for i, line := range bannerArt {
		fmt.Fprintln(w, p.String(line).Foreground(p.Color(bannerColors[i])))
	}
	if version != "" {
		fmt.Fprintln(w, p.String("  "+version).Faint())
	}
	fmt.Fprintln(w)
}
