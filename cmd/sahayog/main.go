package main

import (
	"os"

	"github.com/sahayog-network/sahayog/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
