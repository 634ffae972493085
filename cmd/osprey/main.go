package main

import (
	"os"

	"github.com/osprey-sec/osprey/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
