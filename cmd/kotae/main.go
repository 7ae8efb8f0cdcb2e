// Package main is the kotae CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	// API keys may live in a local .env during development.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
