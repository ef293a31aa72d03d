// Command importhistory keeps the list of recently imported, created and moved
// assets for an authoring host, and serves the host's change callbacks over
// HTTP.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
