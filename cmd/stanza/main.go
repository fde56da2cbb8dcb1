package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jlrickert/stanza/pkg/cli"
)

func main() {
	ctx := context.Background()

	code, err := cli.Run(ctx, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "stanza:", err)
	}
	os.Exit(code)
}
