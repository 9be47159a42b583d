package main

import (
	"os"

	"github.com/fondat/salesforce-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
