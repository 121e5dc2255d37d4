// Package main is the entry point for the shootplan CLI.
package main

import (
	"context"
	"os"

	"github.com/studioline/shootplan/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
