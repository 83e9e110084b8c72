// Command vhist builds and serves the historical index of communes and voies.
package main

import (
	"os"

	"github.com/kilupskalvis/vhist/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
