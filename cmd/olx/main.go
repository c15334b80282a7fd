// Command olx scaffolds new runs of an OLX course.
package main

import (
	"os"

	"github.com/Iron-Ham/olx/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args, os.Stderr))
}
