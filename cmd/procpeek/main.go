package main

import (
	"fmt"
	"os"
)

func main() {
	err := newRootCmd(newApp()).Execute()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}
