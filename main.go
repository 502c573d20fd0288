// The main package for the mgrcrawl executable.
package main

import (
	"github.com/JakeFAU/manager-records-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
