package main

import (
	"os"

	"github.com/Brownie44l1/classifier-api/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
