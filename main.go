package main

import (
	"fmt"
	"os"

	"github.com/stateful/labdoc/internal/cmd"
)

func root() int {
	if err := cmd.Root().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return 0
}

func main() {
	os.Exit(root())
}
