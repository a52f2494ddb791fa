// Command pointdiff compares two point-cloud CSV exports and shows where
// they disagree by more than a threshold.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
