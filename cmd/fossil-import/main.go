// Package main provides the entry point for the fossil-import CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/fossil-import/internal/cli"
	"github.com/JonMunkholm/fossil-import/internal/core"
)

func main() {
	// A .env file fills in settings the shell does not set
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if core.IsUserFacing(err) {
			msg := core.MapError(err)
			fmt.Fprintf(os.Stderr, "%s (Code: %s)\n", msg.Action, msg.Code)
		}
		os.Exit(1)
	}
}
