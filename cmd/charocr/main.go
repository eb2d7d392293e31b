// Command charocr trains handwritten character classifiers from a folder of
// drawn samples and recognises new drawings with the saved models.
//
// Usage: charocr <command> [options]
package main

import (
	"fmt"
	"log"
	"os"
)

func main() {
	log.SetFlags(log.LstdFlags)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
