package main

import (
	"fmt"
	"os"

	"tpccharness/cmd/tpccharness/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed: %v\n", err)
		os.Exit(1)
	}
}
