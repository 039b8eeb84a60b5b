// The main package for the hq executable.
package main

import (
	"github.com/chromara/hq/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
