package main

import (
	"os"

	"filedrop/cmd/filedrop/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
