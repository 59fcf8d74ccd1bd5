package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/sitesafe/safemap/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
