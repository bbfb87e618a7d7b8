package main

import (
	"os"

	"github.com/andrew-r-thomas/tinyworld/cmd/tinyworld/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
