package main

import (
	"os"

	"github.com/evermem/evermem/cmd/evermem/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
