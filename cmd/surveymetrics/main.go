package main

import (
	"log/slog"
	"os"
)

func main() {
	rootCmd, c := newRootCmd()
	err := rootCmd.Execute()
	if cerr := c.close(); cerr != nil {
		slog.Error("Failed to close database", "error", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
