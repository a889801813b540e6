package main

import (
	"os"

	"github.com/carrent-dev/carrent/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
