package main

import (
	"fmt"
	"os"

	apperrors "github.com/leeforge/globaltree/errors"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, apperrors.Describe(err))
		os.Exit(1)
	}
}
