// Command threatlens filters and aggregates cybersecurity incident data
// from the command line or over HTTP.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
