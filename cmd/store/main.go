// Binary store creates and checks store disk images.
package main

import (
	"github.com/mit-pdos/go-store/cli"
)

func main() {
	cli.Main()
}
