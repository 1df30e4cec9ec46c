// Command voxdeck is the operator console for the voxdeck agent
// platform. It signs operators in, manages agent presets and their
// tool wiring, stages knowledge documents, follows usage, and emits
// embed snippets for the hosted widget.
package main

import (
	"fmt"
	"os"

	"github.com/voxdeck/voxdeck/cmd/voxdeck/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "voxdeck:", err)
		os.Exit(1)
	}
}
