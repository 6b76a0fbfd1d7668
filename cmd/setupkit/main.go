// Command setupkit installs and uninstalls applications described by a
// declarative installer script.
package main

import (
	"os"

	"github.com/crafted-tech/setupkit/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
