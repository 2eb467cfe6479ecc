package main

import (
	"fmt"
	"os"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := RunWithArgs(version, nil); err != nil {
		fmt.Fprintf(os.Stderr, "tetrascan: %v\n", err)
		os.Exit(1)
	}
}
