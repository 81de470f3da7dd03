// Package main is the entry point for the cobslog command.
package main

import (
	"os"

	"firestige.xyz/cobslog/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
