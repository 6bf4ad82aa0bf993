package common

import (
	"fmt"
	"io"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner writes the CLI banner to w.
func PrintBanner(w io.Writer, config *Config) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	width := 56
	hr := lineColor + strings.Repeat("═", width) + banner.ColorReset

	art := []string{
		` ____ _____                 _   _  __ _`,
		`| __ )___ / _ __   ___ | |_(_)/ _(_) ___ _ __`,
		`|  _ \ |_ \| '_ \ / _ \| __| | |_| |/ _ \ '__|`,
		`| |_) |__) | | | | (_) | |_| |  _| |  __/ |`,
		`|____/____/|_| |_|\___/ \__|_|_| |_|\___|_|`,
	}

	fmt.Fprintf(w, "%s\n", hr)
	for _, line := range art {
		fmt.Fprintf(w, "%s%s%s\n", textColor, line, banner.ColorReset)
	}
	fmt.Fprintf(w, "%s  B3 watchlist & price alerts%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(w, "%s\n", hr)

	kvLines := [][2]string{
		{"Version", GetFullVersion()},
		{"Environment", config.Environment},
		{"API", config.API.BaseURL},
		{"Session store", config.Storage.Backend},
	}
	for _, kv := range kvLines {
		fmt.Fprintf(w, "%s  %-14s %s%s\n", textColor, kv[0], kv[1], banner.ColorReset)
	}
	fmt.Fprintf(w, "%s\n", hr)
}
