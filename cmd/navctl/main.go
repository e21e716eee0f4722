// Package main provides the entry point for the navctl CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
