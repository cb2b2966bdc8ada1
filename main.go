package main

import (
	"os"

	"github.com/moselab/netbed/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
