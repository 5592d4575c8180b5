// correlator pairs meeting notices (calendar invites, emails) with generated
// meeting artifacts (notes, transcripts).
//
// Usage:
//
//	correlator serve --config config.yaml
//	correlator run --notices notices.json --artifacts artifacts.json --strategy balanced
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
