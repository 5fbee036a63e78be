package cmd

import (
	"fmt"
	"io"
)

const banner = `
                       _       _
  _   _ _ __ ___ _   _(_)___ (_)_ __   ___
 | | | | '__/ __| | | | / __|| | '_ \ / _ \
 | |_| | | | (__| |_| | \__ \| | | | |  __/
  \__,_|_|  \___|\__,_|_|___/|_|_| |_|\___|

`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Recipe sharing client - Version %s\x1b[0m\n\n", Version)
}
