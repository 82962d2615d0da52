package main

import (
	"os"

	"github.com/ivalora-gadget/console/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
