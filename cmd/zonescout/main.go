// Command zonescout researches one Los Angeles property from the terminal.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(buildAnalyzer).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
