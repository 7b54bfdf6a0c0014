// Command waitgen drives waitgen gates under load and reports pool statistics.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/llxisdsh/waitgen/internal/cmd"
)

func main() {
	if err := fang.Execute(context.Background(), cmd.NewRootCmd()); err != nil {
		os.Exit(1)
	}
}
