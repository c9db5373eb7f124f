// Command smbnotifyd runs a standalone demo daemon that wires the
// change-notification dispatcher, file-state cache, thread pool, and DB
// connection pool together so their interaction can be observed outside of
// a hosting SMB server.
package main

import (
	"fmt"
	"os"

	"github.com/gocifsd/smbnotifyd/cmd/smbnotifyd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
