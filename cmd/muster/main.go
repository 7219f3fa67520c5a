package main

import (
	"fmt"
	"os"

	"github.com/MrSnakeDoc/muster/cmd/muster/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ muster: %v\n", err)
		os.Exit(1)
	}
}
