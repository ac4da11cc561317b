// ./main.go
package main

import (
	"github.com/johnjkle/traderev/cmd"
)

// main is the entry point for the traderev CLI.
func main() {
	cmd.Execute()
}
