package main

import (
	"os"

	"github.com/MeKo-Tech/datpeek/cmd/datpeek/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
