// Command pink renders and serves reactive HTML documents.
package main

import (
	"fmt"
	"os"

	"github.com/go-pink/pink/cmd/pink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
