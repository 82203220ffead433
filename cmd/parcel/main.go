// Command parcel splits street lines and drives MyParcel shipments from the shell.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

func main() {
	// Same .env as the server; a missing file is fine.
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout, nil).Execute(); err != nil {
		color.New(color.FgHiRed).Fprint(os.Stderr, "error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
