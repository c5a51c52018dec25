package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dsv-su/dsvgo/pkg/cli"
)

func main() {
	root := cli.NewRootCommand()
	flag.Parse()

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
