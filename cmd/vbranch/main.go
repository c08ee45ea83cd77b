// Package main provides the vbranch CLI.
package main

import (
	"os"

	"github.com/mesh-intelligence/vbranch/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
