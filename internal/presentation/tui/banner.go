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
	{"            _             ", "#818cf8"},
	{"  _ __ ___ | | __ _ _   _ ", "#a78bfa"},
	{" | '__/ _ \\| |/ _` | | | |", "#c084fc"},
	{" | | |  __/| | (_| | |_| |", "#e879f9"},
	{" |_|  \\___||_|\\__,_|\\__, |", "#f472b6"},
	{"                    |___/ ", "#fb7185"},
}

// PrintBanner writes the Relay banner followed by the version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String(" customer support assistant "+version).Faint())
	fmt.Fprintln(w)
}
