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
	{`       _`, "#2dd4bf"},
	{`   ___(_) _____   _____`, "#22d3ee"},
	{`  / __| |/ _ \ \ / / _ \`, "#38bdf8"},
	{`  \__ \ |  __/\ V /  __/`, "#60a5fa"},
	{`  |___/_|\___| \_/ \___|`, "#818cf8"},
}

// PrintBanner writes the sieve banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// Verdict returns a colored one-word summary of a validation.
func Verdict(valid bool) string {
	p := termenv.ColorProfile()
	if valid {
		return termenv.String("valid").Foreground(p.Color("#22c55e")).Bold().String()
	}
	return termenv.String("invalid").Foreground(p.Color("#ef4444")).Bold().String()
}
