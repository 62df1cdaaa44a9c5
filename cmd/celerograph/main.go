package main

import (
	"errors"
	"fmt"
	"os"
)

// exitCode is returned by commands that need a specific exit status.
type exitCode int

func (c exitCode) Error() string {
	return fmt.Sprintf("exit status %d", int(c))
}

func main() {
	err := newRootCmd().Execute()
	if err == nil {
		return
	}
	var code exitCode
	if errors.As(err, &code) {
		os.Exit(int(code))
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
