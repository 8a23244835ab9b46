// The main package for the maintenance-collector executable.
package main

import (
	"os"

	"github.com/JakeFAU/toyota-maintenance-collector/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
