package main

import (
	"fmt"
	"os"

	"github.com/mrsinham/dicomedit/cmd/dicomedit/cli"
	"github.com/mrsinham/dicomedit/internal/bulkedit"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	if err := cli.NewRoot(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", bulkedit.NewReport(err))
		os.Exit(1)
	}
}
