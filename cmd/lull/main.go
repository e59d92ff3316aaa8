package main

import (
	"os"

	"github.com/lull-sh/lull/cmd/lull/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
