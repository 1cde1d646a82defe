// The main package for the folio executable.
package main

import (
	"github.com/atelierlabs/folio/cmd"
)

func main() {
	cmd.Execute()
}
