// journeyctl drives the journey planner from a terminal.
package main

import (
	"fmt"
	"os"

	"github.com/ashureev/journey-mapper/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
